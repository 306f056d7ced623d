// Пакет searchclient — HTTP-клиент внешнего поискового индекса.
//
// Операции:
//   - upsert: POST /publicaties, /documenten, /onderwerpen (ответ содержит taskId)
//   - remove: DELETE /{type}/{uuid}; 404 считается успехом
//
// Индекс обрабатывает запросы асинхронно, поэтому upsert идемпотентен:
// повторная отправка той же проекции не меняет результат.
package searchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// Ошибки поискового сервиса.
var (
	// ErrUnavailable — сеть, 5xx или 429; задача будет повторена.
	ErrUnavailable = errors.New("поисковый сервис недоступен")
	// ErrRejected — сервис отклонил запрос (4xx).
	ErrRejected = errors.New("поисковый сервис отклонил запрос")
)

// Organisation — ссылка на организацию в проекции.
type Organisation struct {
	UUID string `json:"uuid"`
	Naam string `json:"naam"`
}

// Category — ссылка на информационную категорию в проекции.
type Category struct {
	UUID string `json:"uuid"`
	Naam string `json:"naam"`
}

// TopicRef — ссылка на тему в проекции публикации.
type TopicRef struct {
	UUID           string `json:"uuid"`
	OfficieleTitel string `json:"officieleTitel"`
}

// DocumentBody — индексируемая проекция документа.
type DocumentBody struct {
	UUID                 string        `json:"uuid"`
	Publicatie           string        `json:"publicatie"`
	Publisher            *Organisation `json:"publisher,omitempty"`
	Identifier           string        `json:"identifier"`
	OfficieleTitel       string        `json:"officieleTitel"`
	VerkorteTitel        string        `json:"verkorteTitel"`
	Omschrijving         string        `json:"omschrijving"`
	Creatiedatum         string        `json:"creatiedatum"`
	Registratiedatum     time.Time     `json:"registratiedatum"`
	LaatstGewijzigdDatum time.Time     `json:"laatstGewijzigdDatum"`
}

// PublicationBody — индексируемая проекция публикации.
type PublicationBody struct {
	UUID                  string        `json:"uuid"`
	Publisher             *Organisation `json:"publisher,omitempty"`
	InformatieCategorieen []Category    `json:"informatieCategorieen"`
	Onderwerpen           []TopicRef    `json:"onderwerpen"`
	OfficieleTitel        string        `json:"officieleTitel"`
	VerkorteTitel         string        `json:"verkorteTitel"`
	Omschrijving          string        `json:"omschrijving"`
	Registratiedatum      time.Time     `json:"registratiedatum"`
	LaatstGewijzigdDatum  time.Time     `json:"laatstGewijzigdDatum"`
}

// TopicBody — индексируемая проекция темы.
type TopicBody struct {
	UUID                 string    `json:"uuid"`
	OfficieleTitel       string    `json:"officieleTitel"`
	Omschrijving         string    `json:"omschrijving"`
	Registratiedatum     time.Time `json:"registratiedatum"`
	LaatstGewijzigdDatum time.Time `json:"laatstGewijzigdDatum"`
}

type taskResponse struct {
	TaskID string `json:"taskId"`
}

// Client — HTTP-клиент поискового индекса.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент. token может быть пустым.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "search_client")),
	}
}

// BaseURL возвращает адрес сервиса (для проверки зависимостей).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// collection — путь коллекции для типа сущности.
func collection(t model.EntityType) (string, error) {
	switch t {
	case model.EntityPublication:
		return "publicaties", nil
	case model.EntityDocument:
		return "documenten", nil
	case model.EntityTopic:
		return "onderwerpen", nil
	default:
		return "", fmt.Errorf("неизвестный тип сущности %q", t)
	}
}

// UpsertPublication индексирует публикацию.
func (c *Client) UpsertPublication(ctx context.Context, body PublicationBody) (string, error) {
	return c.upsert(ctx, model.EntityPublication, body)
}

// UpsertDocument индексирует документ.
func (c *Client) UpsertDocument(ctx context.Context, body DocumentBody) (string, error) {
	return c.upsert(ctx, model.EntityDocument, body)
}

// UpsertTopic индексирует тему.
func (c *Client) UpsertTopic(ctx context.Context, body TopicBody) (string, error) {
	return c.upsert(ctx, model.EntityTopic, body)
}

func (c *Client) upsert(ctx context.Context, t model.EntityType, body any) (string, error) {
	coll, err := collection(t)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("сериализация проекции %s: %w", t, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/"+coll, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: POST /%s: %v", ErrUnavailable, coll, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK, http.StatusCreated, http.StatusAccepted); err != nil {
		return "", fmt.Errorf("POST /%s: %w", coll, err)
	}

	var tr taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: декодирование ответа POST /%s: %v", ErrRejected, coll, err)
	}
	return tr.TaskID, nil
}

// Remove удаляет сущность из индекса. Отсутствующая сущность — не ошибка.
func (c *Client) Remove(ctx context.Context, t model.EntityType, id string) (string, error) {
	coll, err := collection(t)
	if err != nil {
		return "", err
	}
	path := "/" + coll + "/" + id

	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: DELETE %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("Сущность отсутствует в индексе", slog.String("path", path))
		return "", nil
	}
	if err := checkStatus(resp, http.StatusOK, http.StatusAccepted, http.StatusNoContent); err != nil {
		return "", fmt.Errorf("DELETE %s: %w", path, err)
	}

	var tr taskResponse
	// Тело ответа на удаление необязательно.
	_ = json.NewDecoder(resp.Body).Decode(&tr)
	return tr.TaskID, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	return req, nil
}

// checkStatus проверяет код ответа и классифицирует ошибку.
func checkStatus(resp *http.Response, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: статус %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("%w: статус %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
}
