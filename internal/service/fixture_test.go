package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/searchclient"
	"github.com/bigkaa/woo-publications/internal/repository/memrepo"
)

var testActor = model.Actor{ID: "redacteur", DisplayName: "Редактор"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock — управляемые часы.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- Хранилище документов ---

// fakeDocStore собирает содержимое файлов в памяти.
type fakeDocStore struct {
	mu       sync.Mutex
	parts    func(size int64) []ranges.Range
	content  map[string][]byte
	written  map[string]ranges.Set
	deleted  []string
	writeErr error
	created  int
	// rotateLock — после каждой записи выдаётся новый токен блокировки
	rotateLock bool
	writes     int
	// finalLock — токен, с которым вызван Finalize
	finalLock string
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{content: map[string][]byte{}, written: map[string]ranges.Set{}}
}

func (f *fakeDocStore) Name() string { return "fake" }

func (f *fakeDocStore) Create(_ context.Context, req docstore.CreateRequest) (docstore.Remote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.content[id] = make([]byte, req.Size)
	f.created++
	remote := docstore.Remote{ID: id, Lock: "lock-" + id[:8]}
	if f.parts != nil {
		remote.Parts = f.parts(req.Size)
	}
	return remote, nil
}

func (f *fakeDocStore) Layout(_ context.Context, remoteID string) ([]ranges.Range, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.content[remoteID]
	if !ok {
		return nil, docstore.ErrRejected
	}
	if f.parts == nil {
		return nil, nil
	}
	return f.parts(int64(len(buf))), nil
}

func (f *fakeDocStore) WriteRange(_ context.Context, remoteID, lock string, offset int64, r io.Reader, size int64) (string, error) {
	f.mu.Lock()
	writeErr := f.writeErr
	f.mu.Unlock()
	if writeErr != nil {
		return "", writeErr
	}

	chunk := make([]byte, size)
	if _, err := io.ReadFull(r, chunk); err != nil {
		return "", fmt.Errorf("%w: %v", docstore.ErrShortBody, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	buf, ok := f.content[remoteID]
	if !ok {
		return "", docstore.ErrRejected
	}
	copy(buf[offset:], chunk)
	f.written[remoteID] = f.written[remoteID].Add(ranges.Range{Start: offset, End: offset + size})
	f.writes++
	if f.rotateLock {
		return fmt.Sprintf("%s/%d", remoteID[:8], f.writes), nil
	}
	return lock, nil
}

func (f *fakeDocStore) Finalize(_ context.Context, remoteID, lock string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalLock = lock
	buf, ok := f.content[remoteID]
	if !ok {
		return docstore.ErrRejected
	}
	if !f.written[remoteID].CoversExactly(int64(len(buf))) {
		return docstore.ErrNotComplete
	}
	return nil
}

func (f *fakeDocStore) Delete(_ context.Context, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.content, remoteID)
	f.deleted = append(f.deleted, remoteID)
	return nil
}

func (f *fakeDocStore) bytes(remoteID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.content[remoteID]...)
}

// --- Поисковый индекс ---

// fakeIndexer — индекс в памяти с журналом вызовов.
type fakeIndexer struct {
	mu      sync.Mutex
	entries map[model.EntityRef]any
	calls   []string
	// fail — ошибка для вызова; nil — вызов успешен
	fail func(op string, ref model.EntityRef) error
	// deadlines — срок контекста каждого вызова upsert публикации
	deadlines []time.Time
}

var errIndexDown = errors.New("индекс недоступен")

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{entries: map[model.EntityRef]any{}}
}

func (f *fakeIndexer) record(op string, ref model.EntityRef, body any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+string(ref.Type)+" "+ref.ID)
	if f.fail != nil {
		if err := f.fail(op, ref); err != nil {
			return "", err
		}
	}
	if op == "remove" {
		delete(f.entries, ref)
	} else {
		f.entries[ref] = body
	}
	return fmt.Sprintf("task-%d", len(f.calls)), nil
}

func (f *fakeIndexer) UpsertPublication(ctx context.Context, body searchclient.PublicationBody) (string, error) {
	if d, ok := ctx.Deadline(); ok {
		f.mu.Lock()
		f.deadlines = append(f.deadlines, d)
		f.mu.Unlock()
	}
	return f.record("upsert", model.EntityRef{Type: model.EntityPublication, ID: body.UUID}, body)
}

func (f *fakeIndexer) UpsertDocument(_ context.Context, body searchclient.DocumentBody) (string, error) {
	return f.record("upsert", model.EntityRef{Type: model.EntityDocument, ID: body.UUID}, body)
}

func (f *fakeIndexer) UpsertTopic(_ context.Context, body searchclient.TopicBody) (string, error) {
	return f.record("upsert", model.EntityRef{Type: model.EntityTopic, ID: body.UUID}, body)
}

func (f *fakeIndexer) Remove(_ context.Context, t model.EntityType, id string) (string, error) {
	return f.record("remove", model.EntityRef{Type: t, ID: id}, nil)
}

func (f *fakeIndexer) has(t model.EntityType, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[model.EntityRef{Type: t, ID: id}]
	return ok
}

func (f *fakeIndexer) setFail(fn func(op string, ref model.EntityRef) error) {
	f.mu.Lock()
	f.fail = fn
	f.mu.Unlock()
}

func (f *fakeIndexer) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// --- Сборка сервисов ---

type fixture struct {
	t         *testing.T
	ctx       context.Context
	clock     *testClock
	store     *memrepo.Store
	docs      *fakeDocStore
	index     *fakeIndexer
	cats      *CategoryCache
	retention *RetentionService
	lifecycle *LifecycleService
	uploads   *UploadService
	sync      *IndexSynchronizer
	ownership *OwnershipService
	bulk      *BulkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := discardLogger()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		clock: newTestClock(),
		store: memrepo.New(),
		docs:  newFakeDocStore(),
		index: newFakeIndexer(),
	}
	f.cats = NewCategoryCache(f.store, 16, time.Minute)
	f.retention = NewRetentionService(f.store, f.cats, time.UTC, logger)
	f.retention.now = f.clock.now
	f.sync = NewIndexSynchronizer(f.store, f.index, NewProjector(f.store, f.cats), SyncConfig{
		PollInterval:   time.Hour,
		BatchSize:      10,
		Concurrency:    4,
		Lease:          30 * time.Second,
		BackoffBase:    time.Second,
		BackoffCeiling: time.Minute,
		MaxAttempts:    3,
	}, logger)
	f.sync.now = f.clock.now
	f.lifecycle = NewLifecycleService(f.store, f.retention, f.docs, f.sync, logger)
	f.lifecycle.now = f.clock.now
	f.uploads = NewUploadService(f.store, f.docs, UploadLimits{
		MaxDuration: time.Hour,
		MaxChunks:   100,
		IdleTimeout: 10 * time.Minute,
	}, logger)
	f.uploads.now = f.clock.now
	f.ownership = NewOwnershipService(f.store, logger)
	f.ownership.now = f.clock.now
	f.bulk = NewBulkService(f.store, f.lifecycle, f.sync, 4, logger)
	return f
}

// category сохраняет информационную категорию напрямую в хранилище.
func (f *fixture) category(id string, order, years int, nomination retention.Nomination) string {
	f.t.Helper()
	err := f.store.Repos().Categories.Upsert(f.ctx, &model.InformationCategory{
		ID:             id,
		Name:           "Категория " + id,
		Order:          order,
		RetentionYears: years,
		Nomination:     nomination,
		StartEvent:     retention.StartPublished,
		Source:         "Selectielijst gemeenten 2020",
	})
	if err != nil {
		f.t.Fatalf("сохранение категории: %v", err)
	}
	return id
}

func (f *fixture) organisation(id, name string) string {
	f.t.Helper()
	if err := f.store.Repos().Organisations.Upsert(f.ctx, &model.Organisation{ID: id, Name: name}); err != nil {
		f.t.Fatalf("сохранение организации: %v", err)
	}
	return id
}

func (f *fixture) publication(st status.Status, categoryIDs ...string) *model.Publication {
	f.t.Helper()
	res, err := f.lifecycle.RegisterPublication(f.ctx, testActor, PublicationInput{
		OfficialTitle: "Besluit op Woo-verzoek",
		CategoryIDs:   categoryIDs,
		Status:        st,
	})
	if err != nil {
		f.t.Fatalf("регистрация публикации: %v", err)
	}
	return res.Publication
}

// document регистрирует документ; complete — файл считается загруженным.
func (f *fixture) document(publicationID string, complete bool) *model.Document {
	f.t.Helper()
	res, err := f.lifecycle.RegisterDocument(f.ctx, testActor, publicationID, DocumentInput{
		Identifier:    "DOC-" + publicationID[:4],
		OfficialTitle: "Bijlage",
		FileFormat:    "application/pdf",
		FileName:      "bijlage.pdf",
	})
	if err != nil {
		f.t.Fatalf("регистрация документа: %v", err)
	}
	d := res.Document
	if complete {
		d.Upload = model.UploadState{Service: f.docs.Name(), RemoteID: "remote-" + d.ID, Complete: true}
		d.FileSize = 10
		if err := f.store.Repos().Documents.Update(f.ctx, d); err != nil {
			f.t.Fatalf("отметка загрузки: %v", err)
		}
	}
	return d
}

func (f *fixture) setStatus(ref model.EntityRef, to status.Status) *StatusResult {
	f.t.Helper()
	res, err := f.lifecycle.SetStatus(f.ctx, testActor, ref, to)
	if err != nil {
		f.t.Fatalf("смена статуса %s %s → %s: %v", ref.Type, ref.ID, to, err)
	}
	return res
}

// drain обрабатывает очередь, пока синхронизатор берёт задачи.
func (f *fixture) drain() {
	f.t.Helper()
	for i := 0; i < 20; i++ {
		n, err := f.sync.RunOnce(f.ctx)
		if err != nil {
			f.t.Fatalf("RunOnce: %v", err)
		}
		if n == 0 {
			return
		}
	}
	f.t.Fatal("очередь индекса не опустела")
}

func (f *fixture) getDocument(id string) *model.Document {
	f.t.Helper()
	d, err := f.store.Repos().Documents.GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("чтение документа %s: %v", id, err)
	}
	return d
}

func (f *fixture) getPublication(id string) *model.Publication {
	f.t.Helper()
	p, err := f.store.Repos().Publications.GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("чтение публикации %s: %v", id, err)
	}
	return p
}
