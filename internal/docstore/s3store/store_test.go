package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// mockS3 — минимальный S3 в памяти: PUT, GET, DELETE, ListObjectsV2.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	// failStatus — если не 0, любой запрос получает этот код
	failStatus int
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failStatus != 0 {
		body := "<Error><Code>AccessDenied</Code><Message>denied</Message></Error>"
		if m.failStatus >= 500 {
			body = "<Error><Code>ServiceUnavailable</Code><Message>down</Message></Error>"
		}
		return response(m.failStatus, []byte(body), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	// path-style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range m.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(m.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil

	case req.Method == http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeAWSChunked(body); ok {
			body = dec
		}
		m.objects[key] = body
		etag := fmt.Sprintf(`"etag-%d"`, len(m.objects))
		return response(http.StatusOK, nil, http.Header{"ETag": {etag}}), nil

	case req.Method == http.MethodGet:
		body, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound,
				[]byte("<Error><Code>NoSuchKey</Code><Message>no key</Message></Error>"),
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, body, http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
			"ETag":           {`"etag"`},
		}), nil

	case req.Method == http.MethodDelete:
		delete(m.objects, key)
		return response(http.StatusNoContent, nil, http.Header{}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func (m *mockS3) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func response(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     h,
	}
}

// decodeAWSChunked разбирает тело aws-chunked из одного чанка:
// <hex>\r\n<data>\r\n0\r\n<trailers>.
func decodeAWSChunked(b []byte) ([]byte, bool) {
	head, rest, ok := bytes.Cut(b, []byte("\r\n"))
	if !ok {
		return nil, false
	}
	size, err := strconv.ParseInt(string(head), 16, 64)
	if err != nil || int64(len(rest)) < size {
		return nil, false
	}
	if !bytes.HasPrefix(rest[size:], []byte("\r\n0\r\n")) {
		return nil, false
	}
	return rest[:size], true
}

func newMockStore(t *testing.T) (*Store, *mockS3) {
	t.Helper()
	mock := &mockS3{objects: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("LoadDefaultConfig: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: mock}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RetryMaxAttempts = 1
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithClient(client, "documents", logger), mock
}

func TestS3Store_OutOfOrderUpload(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	content := strings.Repeat("abcdefghij", 10) // 100 байт
	remote, err := store.Create(ctx, docstore.CreateRequest{
		Identifier:  "doc-1",
		FileName:    "rapport.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if remote.ID == "" {
		t.Fatal("пустой remote ID")
	}
	if remote.Parts != nil {
		t.Errorf("S3 не должен навязывать границы частей, получено %v", remote.Parts)
	}

	// Вторая половина раньше первой, с перекрытием.
	chunks := []struct{ start, end int64 }{{40, 100}, {0, 50}}
	lock := remote.Lock
	for _, c := range chunks {
		lock, err = store.WriteRange(ctx, remote.ID, lock, c.start,
			strings.NewReader(content[c.start:c.end]), c.end-c.start)
		if err != nil {
			t.Fatalf("WriteRange [%d,%d): %v", c.start, c.end, err)
		}
	}
	if lock == "" {
		t.Fatal("WriteRange не вернул токен блокировки")
	}

	if err := store.Finalize(ctx, remote.ID, lock); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	keys := mock.keys()
	wantManifest := "documents/" + remote.ID + "/manifest.json"
	found := false
	for _, k := range keys {
		if k == wantManifest {
			found = true
		}
	}
	if !found {
		t.Fatalf("manifest.json не записан, ключи: %v", keys)
	}
	var m manifest
	if err := json.Unmarshal(mock.objects[wantManifest], &m); err != nil {
		t.Fatalf("разбор manifest.json: %v", err)
	}
	if m.Lock != lock {
		t.Errorf("manifest.lock = %q, ожидался %q", m.Lock, lock)
	}
	if m.Size != 100 || !m.Ranges.CoversExactly(100) {
		t.Errorf("manifest: size=%d ranges=%v", m.Size, m.Ranges)
	}
	rangeObj := mock.objects[rangeKey(remote.ID, ranges.Range{Start: 40, End: 100})]
	if string(rangeObj) != content[40:] {
		t.Errorf("содержимое диапазона = %q, ожидалось %q", rangeObj, content[40:])
	}
}

func TestS3Store_FinalizeIncomplete(t *testing.T) {
	store, _ := newMockStore(t)
	ctx := context.Background()

	remote, err := store.Create(ctx, docstore.CreateRequest{Identifier: "doc-2", Size: 100})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.WriteRange(ctx, remote.ID, remote.Lock, 0, strings.NewReader(strings.Repeat("x", 60)), 60); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	err = store.Finalize(ctx, remote.ID, remote.Lock)
	if !errors.Is(err, docstore.ErrNotComplete) {
		t.Fatalf("ожидалась ErrNotComplete, получено %v", err)
	}
}

func TestS3Store_Delete(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	remote, err := store.Create(ctx, docstore.CreateRequest{Identifier: "doc-3", Size: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.WriteRange(ctx, remote.ID, remote.Lock, 0, strings.NewReader("0123456789"), 10); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	if err := store.Delete(ctx, remote.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if keys := mock.keys(); len(keys) != 0 {
		t.Errorf("после удаления остались объекты: %v", keys)
	}
	// Повторное удаление отсутствующего документа — не ошибка.
	if err := store.Delete(ctx, remote.ID); err != nil {
		t.Errorf("повторный Delete: %v", err)
	}
}

func TestS3Store_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "403 — отказ", status: http.StatusForbidden, want: docstore.ErrRejected},
		{name: "503 — недоступно", status: http.StatusServiceUnavailable, want: docstore.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.failStatus = tt.status

			_, err := store.Create(context.Background(), docstore.CreateRequest{Identifier: "doc", Size: 1})
			if !errors.Is(err, tt.want) {
				t.Errorf("ошибка = %v, ожидалась %v", err, tt.want)
			}
		})
	}
}

func TestParseRangeKey(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   ranges.Range
		wantOK bool
	}{
		{name: "обычный", in: "00000000000000000010-00000000000000000020", want: ranges.Range{Start: 10, End: 20}, wantOK: true},
		{name: "без дефиса", in: "123", wantOK: false},
		{name: "пустой диапазон", in: "5-5", wantOK: false},
		{name: "не число", in: "a-b", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRangeKey(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseRangeKey(%q) = %v, %v; ожидалось %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
