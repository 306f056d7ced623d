package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

const (
	testDocUUID = "7a0e1e4e-8d7d-4b8e-9e4b-6f4c2e0a1b01"
	testPart1   = "11111111-1111-4111-8111-111111111111"
	testPart2   = "22222222-2222-4222-8222-222222222222"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockDocumentsAPI — минимальная имитация Documents API с двумя частями по 500 байт.
type mockDocumentsAPI struct {
	t        *testing.T
	mu       sync.Mutex
	server   *httptest.Server
	parts    map[string][]byte
	unlocked bool
	deleted  bool
	created  eioCreateBody
	fail     int // код ответа для всех запросов, 0 — штатная работа
}

func newMockDocumentsAPI(t *testing.T) *mockDocumentsAPI {
	t.Helper()
	m := &mockDocumentsAPI{t: t, parts: map[string][]byte{}}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockDocumentsAPI) document() eioResponse {
	deel := func(id string, n int) bestandsdeel {
		return bestandsdeel{
			URL:        m.server.URL + "/bestandsdelen/" + id,
			Volgnummer: n,
			Omvang:     500,
			Voltooid:   len(m.parts[id]) == 500,
		}
	}
	// Порядок в ответе намеренно обратный — клиент сортирует по volgnummer
	return eioResponse{
		URL:           m.server.URL + "/enkelvoudiginformatieobjecten/" + testDocUUID,
		Lock:          "lock-abc",
		Bestandsdelen: []bestandsdeel{deel(testPart2, 2), deel(testPart1, 1)},
	}
}

func (m *mockDocumentsAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != 0 {
		w.WriteHeader(m.fail)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	docPath := "/enkelvoudiginformatieobjecten/" + testDocUUID
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/enkelvoudiginformatieobjecten":
		if err := json.NewDecoder(r.Body).Decode(&m.created); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(m.document())
	case r.Method == http.MethodGet && r.URL.Path == docPath:
		json.NewEncoder(w).Encode(m.document())
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/bestandsdelen/"):
		id := strings.TrimPrefix(r.URL.Path, "/bestandsdelen/")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("lock") != "lock-abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("inhoud")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		m.parts[id] = data
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && r.URL.Path == docPath+"/unlock":
		m.unlocked = true
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete && r.URL.Path == docPath:
		m.deleted = true
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, m *mockDocumentsAPI) *DocumentsAPIClient {
	t.Helper()
	c, err := NewDocumentsAPIClient(DocumentsAPIConfig{
		BaseURL:      m.server.URL + "/",
		RSIN:         "000000000",
		DocumentType: "https://catalogi.example.nl/informatieobjecttypen/1",
		Timeout:      5 * time.Second,
		Token:        StaticToken("secret"),
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDocumentsAPI_UploadFlow(t *testing.T) {
	m := newMockDocumentsAPI(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	remote, err := c.Create(ctx, CreateRequest{
		Identifier:   "doc-1",
		Title:        strings.Repeat("т", 300),
		FileName:     "besluit.pdf",
		Size:         1000,
		CreationDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if remote.ID != testDocUUID || remote.Lock != "lock-abc" {
		t.Errorf("Remote = %+v", remote)
	}
	want := []ranges.Range{{Start: 0, End: 500}, {Start: 500, End: 1000}}
	if len(remote.Parts) != 2 || remote.Parts[0] != want[0] || remote.Parts[1] != want[1] {
		t.Errorf("Parts = %v, ожидается %v", remote.Parts, want)
	}
	if m.created.Taal != "dut" || m.created.Status != "definitief" || m.created.Inhoud != nil {
		t.Errorf("тело создания = %+v", m.created)
	}
	if len([]rune(m.created.Titel)) != 200 {
		t.Errorf("titel обрезан до %d символов, ожидается 200", len([]rune(m.created.Titel)))
	}
	if m.created.Formaat != "application/octet-stream" || m.created.Creatiedatum != "2024-05-01" {
		t.Errorf("formaat/creatiedatum = %q/%q", m.created.Formaat, m.created.Creatiedatum)
	}

	// Финализация до загрузки всех частей
	if err := c.Finalize(ctx, remote.ID, remote.Lock); !errors.Is(err, ErrNotComplete) {
		t.Errorf("Finalize до загрузки: ошибка = %v, ожидается ErrNotComplete", err)
	}

	// Вторая часть раньше первой
	if _, err := c.WriteRange(ctx, remote.ID, remote.Lock, 500, strings.NewReader(strings.Repeat("b", 500)), 500); err != nil {
		t.Fatalf("WriteRange [500,1000): %v", err)
	}
	if _, err := c.WriteRange(ctx, remote.ID, remote.Lock, 0, strings.NewReader(strings.Repeat("a", 500)), 500); err != nil {
		t.Fatalf("WriteRange [0,500): %v", err)
	}
	if string(m.parts[testPart2]) != strings.Repeat("b", 500) {
		t.Error("содержимое второй части не совпадает")
	}

	if err := c.Finalize(ctx, remote.ID, remote.Lock); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !m.unlocked {
		t.Error("документ не разблокирован")
	}

	if err := c.Delete(ctx, remote.ID); err != nil || !m.deleted {
		t.Errorf("Delete: %v, deleted=%v", err, m.deleted)
	}
}

func TestDocumentsAPI_WriteRangeErrors(t *testing.T) {
	m := newMockDocumentsAPI(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	tests := []struct {
		name    string
		offset  int64
		body    string
		size    int64
		wantErr error
	}{
		{name: "не по границе части", offset: 100, body: strings.Repeat("x", 400), size: 400, wantErr: ErrMisaligned},
		{name: "через границу частей", offset: 250, body: strings.Repeat("x", 500), size: 500, wantErr: ErrMisaligned},
		{name: "тело короче размера", offset: 0, body: "short", size: 500, wantErr: ErrShortBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.WriteRange(ctx, testDocUUID, "lock-abc", tt.offset, strings.NewReader(tt.body), tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentsAPI_CompletedPartIsSkipped(t *testing.T) {
	m := newMockDocumentsAPI(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	m.parts[testPart1] = []byte(strings.Repeat("a", 500))
	if _, err := c.WriteRange(ctx, testDocUUID, "lock-abc", 0, strings.NewReader(strings.Repeat("z", 500)), 500); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}
	if string(m.parts[testPart1][:1]) != "a" {
		t.Error("завершённая часть перезаписана")
	}
}

func TestDocumentsAPI_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "503 — недоступно", status: http.StatusServiceUnavailable, wantErr: ErrUnavailable},
		{name: "429 — недоступно", status: http.StatusTooManyRequests, wantErr: ErrUnavailable},
		{name: "400 — отклонено", status: http.StatusBadRequest, wantErr: ErrRejected},
		{name: "403 — отклонено", status: http.StatusForbidden, wantErr: ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockDocumentsAPI(t)
			m.fail = tt.status
			c := newTestClient(t, m)

			_, err := c.Layout(context.Background(), testDocUUID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentsAPI_Unreachable(t *testing.T) {
	c, _ := NewDocumentsAPIClient(DocumentsAPIConfig{
		BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Token: StaticToken("x"),
	}, testLogger())
	_, err := c.Create(context.Background(), CreateRequest{Identifier: "d", Size: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("ошибка = %v, ожидается ErrUnavailable", err)
	}
}

func TestZGWToken(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	header, err := ZGWToken("woo-publications", "s3cr3t", func() time.Time { return fixed })(context.Background())
	if err != nil {
		t.Fatalf("ZGWToken: %v", err)
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("s3cr3t"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("проверка подписи: %v", err)
	}
	if claims["client_id"] != "woo-publications" {
		t.Errorf("client_id = %v", claims["client_id"])
	}
	if iat, _ := claims["iat"].(float64); int64(iat) != fixed.Unix() {
		t.Errorf("iat = %v, ожидается %d", claims["iat"], fixed.Unix())
	}
}

func TestExtractUUID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://x/api/v1/enkelvoudiginformatieobjecten/" + testDocUUID, want: testDocUUID},
		{in: "https://x/bestandsdelen/" + testPart1 + "/", want: testPart1},
		{in: "https://x/bestandsdelen/not-a-uuid", wantErr: true},
	}
	for _, tt := range tests {
		got, err := extractUUID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("extractUUID(%q) = %q, %v", tt.in, got, err)
		}
	}
}
