package docstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// ErrShortBody — поток части закончился раньше заявленного размера.
var ErrShortBody = errors.New("тело части короче заявленного размера")

// ServiceDocumentsAPI — имя бэкенда Documents API.
const ServiceDocumentsAPI = "documents-api"

const defaultAuthor = "WOO registrations"

// DocumentsAPIConfig — параметры клиента Documents API.
type DocumentsAPIConfig struct {
	// BaseURL — корень API, например https://documenten.example.nl/api/v1
	BaseURL string
	// RSIN — bronorganisatie создаваемых документов
	RSIN string
	// DocumentType — URL informatieobjecttype в Catalogi API
	DocumentType string
	// CACertPath — путь к CA-сертификату (пустая строка — системный пул)
	CACertPath string
	Timeout    time.Duration
	Token      TokenProvider
}

// DocumentsAPIClient — клиент Documents API 1.1+ (загрузка крупных файлов через bestandsdelen).
type DocumentsAPIClient struct {
	baseURL    string
	rsin       string
	docType    string
	httpClient *http.Client
	token      TokenProvider
	logger     *slog.Logger
}

// NewDocumentsAPIClient создаёт клиент Documents API.
func NewDocumentsAPIClient(cfg DocumentsAPIConfig, logger *slog.Logger) (*DocumentsAPIClient, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}
	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата Documents API: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат Documents API добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	return &DocumentsAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		rsin:       cfg.RSIN,
		docType:    cfg.DocumentType,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		token:      cfg.Token,
		logger:     logger.With(slog.String("component", "documents_api")),
	}, nil
}

// --- Формат Documents API ---

type eioCreateBody struct {
	Identificatie          string  `json:"identificatie"`
	Bronorganisatie        string  `json:"bronorganisatie"`
	Informatieobjecttype   string  `json:"informatieobjecttype"`
	Creatiedatum           string  `json:"creatiedatum"`
	Titel                  string  `json:"titel"`
	Auteur                 string  `json:"auteur"`
	Status                 string  `json:"status"`
	Formaat                string  `json:"formaat,omitempty"`
	Taal                   string  `json:"taal"`
	Bestandsnaam           string  `json:"bestandsnaam,omitempty"`
	Inhoud                 *string `json:"inhoud"`
	Bestandsomvang         int64   `json:"bestandsomvang"`
	Beschrijving           string  `json:"beschrijving"`
	IndicatieGebruiksrecht bool    `json:"indicatieGebruiksrecht"`
}

type bestandsdeel struct {
	URL        string `json:"url"`
	Volgnummer int    `json:"volgnummer"`
	Omvang     int64  `json:"omvang"`
	Voltooid   bool   `json:"voltooid"`
}

type eioResponse struct {
	URL           string         `json:"url"`
	Lock          string         `json:"lock"`
	Bestandsdelen []bestandsdeel `json:"bestandsdelen"`
}

// filePart — часть файла с вычисленным диапазоном байтов.
type filePart struct {
	ID       string
	Range    ranges.Range
	Complete bool
}

// Name возвращает идентификатор бэкенда.
func (c *DocumentsAPIClient) Name() string {
	return ServiceDocumentsAPI
}

// Create регистрирует enkelvoudiginformatieobject без содержимого.
// POST {base}/enkelvoudiginformatieobjecten
func (c *DocumentsAPIClient) Create(ctx context.Context, req CreateRequest) (Remote, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body := eioCreateBody{
		Identificatie:        req.Identifier,
		Bronorganisatie:      c.rsin,
		Informatieobjecttype: c.docType,
		Creatiedatum:         req.CreationDate.Format(time.DateOnly),
		Titel:                truncateRunes(req.Title, 200),
		Auteur:               defaultAuthor,
		Status:               "definitief",
		Formaat:              contentType,
		Taal:                 "dut",
		Bestandsnaam:         truncateRunes(req.FileName, 255),
		Bestandsomvang:       req.Size,
		Beschrijving:         truncateRunes(req.Description, 1000),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Remote{}, fmt.Errorf("сериализация документа: %w", err)
	}

	var out eioResponse
	if err := c.doJSON(ctx, http.MethodPost, "enkelvoudiginformatieobjecten", payload, &out, http.StatusCreated); err != nil {
		return Remote{}, fmt.Errorf("создание документа: %w", err)
	}

	id, err := extractUUID(out.URL)
	if err != nil {
		return Remote{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	parts, err := toFileParts(out.Bestandsdelen)
	if err != nil {
		return Remote{}, err
	}

	c.logger.Info("Документ создан в Documents API",
		slog.String("document_id", req.Identifier),
		slog.String("remote_id", id),
		slog.Int("parts", len(parts)),
	)
	return Remote{ID: id, Lock: out.Lock, Parts: partRanges(parts)}, nil
}

// Layout возвращает границы частей документа.
func (c *DocumentsAPIClient) Layout(ctx context.Context, remoteID string) ([]ranges.Range, error) {
	parts, err := c.retrieveParts(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return partRanges(parts), nil
}

// WriteRange передаёт часть файла. Диапазон должен совпадать с одной
// частью (bestandsdeel); уже завершённая часть повторно не отправляется.
// PUT {base}/bestandsdelen/{uuid} (multipart: lock + inhoud)
func (c *DocumentsAPIClient) WriteRange(ctx context.Context, remoteID, lock string, offset int64, r io.Reader, size int64) (string, error) {
	parts, err := c.retrieveParts(ctx, remoteID)
	if err != nil {
		return "", err
	}

	want := ranges.Range{Start: offset, End: offset + size}
	var target *filePart
	for i := range parts {
		if parts[i].Range == want {
			target = &parts[i]
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("%w: %s", ErrMisaligned, want)
	}
	if target.Complete {
		c.logger.Debug("Часть уже загружена, повторная отправка пропущена",
			slog.String("remote_id", remoteID),
			slog.String("range", want.String()),
		)
		return lock, nil
	}

	if err := c.putPart(ctx, target.ID, lock, r, size); err != nil {
		return "", err
	}
	return lock, nil
}

// putPart потоком отправляет multipart-тело через io.Pipe, не буферизуя часть целиком.
func (c *DocumentsAPIClient) putPart(ctx context.Context, partID, lock string, r io.Reader, size int64) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	writeErr := make(chan error, 1)

	go func() {
		err := func() error {
			if err := mw.WriteField("lock", lock); err != nil {
				return err
			}
			fw, err := mw.CreateFormFile("inhoud", "part.bin")
			if err != nil {
				return err
			}
			n, err := io.Copy(fw, io.LimitReader(r, size))
			if err != nil {
				return err
			}
			if n != size {
				return ErrShortBody
			}
			return mw.Close()
		}()
		writeErr <- err
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url("bestandsdelen/"+partID), pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("создание запроса загрузки части: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	// Закрытие читающей стороны разблокирует писателя, если запрос прерван
	pr.Close()
	if werr := <-writeErr; errors.Is(werr, ErrShortBody) {
		if resp != nil {
			resp.Body.Close()
		}
		return werr
	}
	if err != nil {
		return fmt.Errorf("загрузка части %s: %w", partID, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK); err != nil {
		return fmt.Errorf("загрузка части %s: %w", partID, err)
	}
	return nil
}

// Finalize проверяет, что все части завершены, и снимает блокировку.
// POST {base}/enkelvoudiginformatieobjecten/{uuid}/unlock
func (c *DocumentsAPIClient) Finalize(ctx context.Context, remoteID, lock string) error {
	parts, err := c.retrieveParts(ctx, remoteID)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if !p.Complete {
			return fmt.Errorf("%w: часть %s (%s) не завершена", ErrNotComplete, p.ID, p.Range)
		}
	}
	if lock == "" {
		return fmt.Errorf("%w: пустой токен блокировки", ErrRejected)
	}

	payload, _ := json.Marshal(map[string]string{"lock": lock})
	if err := c.doJSON(ctx, http.MethodPost, "enkelvoudiginformatieobjecten/"+remoteID+"/unlock",
		payload, nil, http.StatusNoContent, http.StatusOK); err != nil {
		return fmt.Errorf("снятие блокировки документа %s: %w", remoteID, err)
	}
	return nil
}

// Delete удаляет документ; 404 считается успехом.
func (c *DocumentsAPIClient) Delete(ctx context.Context, remoteID string) error {
	err := c.doJSON(ctx, http.MethodDelete, "enkelvoudiginformatieobjecten/"+remoteID, nil, nil,
		http.StatusNoContent, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("удаление документа %s: %w", remoteID, err)
	}
	return nil
}

// retrieveParts читает документ и возвращает его части в порядке volgnummer.
// GET {base}/enkelvoudiginformatieobjecten/{uuid}
func (c *DocumentsAPIClient) retrieveParts(ctx context.Context, remoteID string) ([]filePart, error) {
	var out eioResponse
	if err := c.doJSON(ctx, http.MethodGet, "enkelvoudiginformatieobjecten/"+remoteID, nil, &out, http.StatusOK); err != nil {
		return nil, fmt.Errorf("получение документа %s: %w", remoteID, err)
	}
	return toFileParts(out.Bestandsdelen)
}

// --- HTTP-обвязка ---

func (c *DocumentsAPIClient) url(rel string) string {
	return c.baseURL + "/" + rel
}

func (c *DocumentsAPIClient) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Crs", "EPSG:4326")
	req.Header.Set("Content-Crs", "EPSG:4326")
	if c.token != nil {
		auth, err := c.token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("получение токена Documents API: %w", err)
		}
		req.Header.Set("Authorization", auth)
	}
	resp, err := c.httpClient.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *DocumentsAPIClient) doJSON(ctx context.Context, method, rel string, payload []byte, out any, okStatus ...int) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(rel), body)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, okStatus...); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: некорректный ответ: %v", ErrRejected, err)
		}
	}
	return nil
}

// checkStatus превращает неожиданный код ответа в ErrUnavailable (5xx) или ErrRejected (4xx).
func checkStatus(resp *http.Response, okStatus ...int) error {
	for _, s := range okStatus {
		if resp.StatusCode == s {
			return nil
		}
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	kind := ErrRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		kind = ErrUnavailable
	}
	return fmt.Errorf("%w: HTTP %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func toFileParts(deel []bestandsdeel) ([]filePart, error) {
	sorted := make([]bestandsdeel, len(deel))
	copy(sorted, deel)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Volgnummer < sorted[j].Volgnummer })

	parts := make([]filePart, 0, len(sorted))
	var offset int64
	for _, d := range sorted {
		id, err := extractUUID(d.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: часть %d: %v", ErrRejected, d.Volgnummer, err)
		}
		parts = append(parts, filePart{
			ID:       id,
			Range:    ranges.Range{Start: offset, End: offset + d.Omvang},
			Complete: d.Voltooid,
		})
		offset += d.Omvang
	}
	return parts, nil
}

func partRanges(parts []filePart) []ranges.Range {
	out := make([]ranges.Range, len(parts))
	for i, p := range parts {
		out[i] = p.Range
	}
	return out
}

// extractUUID берёт UUID из последнего сегмента URL ресурса.
func extractUUID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("некорректный URL ресурса %q", raw)
	}
	id, err := uuid.Parse(path.Base(strings.TrimRight(u.Path, "/")))
	if err != nil {
		return "", fmt.Errorf("URL ресурса %q не заканчивается UUID", raw)
	}
	return id.String(), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("файл %s не содержит PEM-сертификатов", caCertPath)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
