package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/woo-publications/internal/config"
	"github.com/bigkaa/woo-publications/internal/database"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
	"github.com/bigkaa/woo-publications/internal/domain/status"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("publications_test"),
		postgres.WithUsername("pe"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, _ := strconv.Atoi(port.Port())

	cfg := &config.Config{
		DBHost: host, DBPort: portNum, DBName: "publications_test",
		DBUser: "pe", DBPassword: "test-password", DBSSLMode: "disable",
		SyncConcurrency: 2,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// seedPublication создаёт владельца, категорию и публикацию в статусе concept.
func seedPublication(t *testing.T, repos *Repositories) *model.Publication {
	t.Helper()
	ctx := context.Background()

	owner, err := repos.Owners.Resolve(ctx, "jdoe", "J. Doe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cat := &model.InformationCategory{
		ID: uuid.NewString(), Name: "Woo-verzoek", Order: 1, RetentionYears: 10,
		Nomination: "vernietigen", StartEvent: "published",
	}
	if err := repos.Categories.Upsert(ctx, cat); err != nil {
		t.Fatalf("Upsert категории: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &model.Publication{
		ID:             uuid.NewString(),
		OfficialTitle:  "Besluit op Woo-verzoek",
		Status:         status.Concept,
		CategoryIDs:    []string{cat.ID},
		Owner:          owner,
		RegisteredAt:   now,
		LastModifiedAt: now,
	}
	if err := repos.Publications.Create(ctx, p); err != nil {
		t.Fatalf("Create публикации: %v", err)
	}
	return p
}

func TestOwnerResolve_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOwnerRepository(pool)
	ctx := context.Background()

	first, err := repo.Resolve(ctx, "jdoe", "J. Doe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := repo.Resolve(ctx, "jdoe", "J. Doe")
	if err != nil {
		t.Fatalf("повторный Resolve: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ID = %s и %s, ожидается один владелец", first.ID, second.ID)
	}
	other, _ := repo.Resolve(ctx, "jdoe", "John Doe")
	if other.ID == first.ID {
		t.Error("другое отображаемое имя должно давать другого владельца")
	}
}

func TestPublicationAndDocumentCRUD(t *testing.T) {
	pool := setupTestDB(t)
	repos := NewRepositories(pool)
	ctx := context.Background()

	p := seedPublication(t, repos)

	got, err := repos.Publications.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != status.Concept || len(got.CategoryIDs) != 1 {
		t.Errorf("публикация = %+v", got)
	}
	if got.Owner.Identifier != "jdoe" {
		t.Errorf("Owner.Identifier = %q", got.Owner.Identifier)
	}

	d := &model.Document{
		ID: uuid.NewString(), PublicationID: p.ID, OfficialTitle: "Bijlage 1",
		CreationDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), FileSize: 1000,
		Status: status.Concept, Owner: p.Owner,
		RegisteredAt: p.RegisteredAt, LastModifiedAt: p.RegisteredAt,
	}
	if err := repos.Documents.Create(ctx, d); err != nil {
		t.Fatalf("Create документа: %v", err)
	}

	// Опубликовать незагруженный документ запрещает CHECK-ограничение
	d.Status = status.Published
	if err := repos.Documents.Update(ctx, d); !errors.Is(err, ErrConflict) {
		t.Errorf("Update без загрузки: ошибка = %v, ожидается ErrConflict", err)
	}

	d.Upload.Complete = true
	if err := repos.Documents.Update(ctx, d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	docs, err := repos.Documents.ListByPublication(ctx, p.ID)
	if err != nil || len(docs) != 1 || docs[0].Status != status.Published {
		t.Fatalf("ListByPublication = %v, %v", docs, err)
	}

	if _, err := repos.Documents.GetByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID несуществующего: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestInTx_RollbackOnError(t *testing.T) {
	pool := setupTestDB(t)
	store := NewStore(pool)
	ctx := context.Background()

	p := seedPublication(t, store.Repos())
	boom := errors.New("сбой")

	err := store.InTx(ctx, func(r *Repositories) error {
		locked, err := r.Publications.GetForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		locked.Status = status.Revoked
		if err := r.Publications.Update(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx: ошибка = %v, ожидается %v", err, boom)
	}

	got, _ := store.Repos().Publications.GetByID(ctx, p.ID)
	if got.Status != status.Concept {
		t.Errorf("Status = %q после отката, ожидается concept", got.Status)
	}
}

func TestIndexTasks_HeadPerEntity(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewIndexTaskRepository(pool)
	ctx := context.Background()

	a := model.EntityRef{Type: model.EntityDocument, ID: uuid.NewString()}
	b := model.EntityRef{Type: model.EntityDocument, ID: uuid.NewString()}

	a1, _ := repo.Enqueue(ctx, a, model.IndexUpsert, false)
	a2, _ := repo.Enqueue(ctx, a, model.IndexRemove, false)
	b1, _ := repo.Enqueue(ctx, b, model.IndexUpsert, false)

	now := time.Now()
	claimed, err := repo.ClaimHeads(ctx, now, time.Minute, 10)
	if err != nil {
		t.Fatalf("ClaimHeads: %v", err)
	}
	ids := map[int64]bool{}
	leases := map[int64]time.Time{}
	for _, c := range claimed {
		ids[c.ID] = true
		if c.LockedUntil == nil {
			t.Fatalf("задача %d захвачена без locked_until", c.ID)
		}
		leases[c.ID] = *c.LockedUntil
	}
	if len(claimed) != 2 || !ids[a1] || !ids[b1] || ids[a2] {
		t.Fatalf("захвачены %v, ожидаются головы %d и %d", ids, a1, b1)
	}

	// Арендованные головы повторно не выдаются
	again, _ := repo.ClaimHeads(ctx, now, time.Minute, 10)
	if len(again) != 0 {
		t.Errorf("повторный захват вернул %d задач", len(again))
	}

	if err := repo.Complete(ctx, b1, leases[b1]); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Неудачная попытка откладывает голову и не открывает следующую задачу
	if err := repo.Fail(ctx, a1, leases[a1], "503", now.Add(time.Hour), false); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	again, _ = repo.ClaimHeads(ctx, now.Add(time.Second), time.Minute, 10)
	if len(again) != 0 {
		t.Errorf("во время backoff захвачено %d задач", len(again))
	}

	// Прежняя аренда после повторного захвата недействительна
	again, _ = repo.ClaimHeads(ctx, now.Add(time.Hour+time.Second), time.Minute, 10)
	if len(again) != 1 || again[0].ID != a1 {
		t.Fatalf("после backoff захвачено %v, ожидается %d", again, a1)
	}
	if err := repo.Complete(ctx, a1, leases[a1]); !errors.Is(err, ErrLeaseLost) {
		t.Errorf("Complete по старой аренде: ошибка = %v, ожидается ErrLeaseLost", err)
	}
	if err := repo.Fail(ctx, a1, leases[a1], "503", now, true); !errors.Is(err, ErrLeaseLost) {
		t.Errorf("Fail по старой аренде: ошибка = %v, ожидается ErrLeaseLost", err)
	}

	// После исчерпания попыток следующая задача сущности становится головой
	if err := repo.Fail(ctx, a1, *again[0].LockedUntil, "503", now, true); err != nil {
		t.Fatalf("Fail exhausted: %v", err)
	}
	again, _ = repo.ClaimHeads(ctx, now.Add(2*time.Hour), time.Minute, 10)
	if len(again) != 1 || again[0].ID != a2 {
		t.Fatalf("захвачено %v, ожидается %d", again, a2)
	}

	stats, _ := repo.Stats(ctx)
	if stats.Failed != 1 {
		t.Errorf("Stats.Failed = %d, ожидается 1", stats.Failed)
	}
	failed, _ := repo.ListFailed(ctx, 10, 0)
	if len(failed) != 1 || failed[0].AttemptCount != 2 || failed[0].LastError == nil {
		t.Errorf("ListFailed = %+v", failed)
	}

	if err := repo.Requeue(ctx, a1, now); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if err := repo.Requeue(ctx, a1, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Requeue: ошибка = %v, ожидается ErrNotFound", err)
	}
}

func TestUploadSession_RangesRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	repos := NewRepositories(pool)
	ctx := context.Background()

	p := seedPublication(t, repos)
	d := &model.Document{
		ID: uuid.NewString(), PublicationID: p.ID, OfficialTitle: "Bijlage",
		CreationDate: time.Now().UTC(), FileSize: 1000, Status: status.Concept,
		Owner: p.Owner, RegisteredAt: p.RegisteredAt, LastModifiedAt: p.RegisteredAt,
	}
	if err := repos.Documents.Create(ctx, d); err != nil {
		t.Fatalf("Create документа: %v", err)
	}

	now := time.Now().UTC()
	s := &model.UploadSession{
		ID: uuid.NewString(), DocumentID: d.ID, TotalSize: 1000,
		State: model.UploadActive, StartedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := repos.Uploads.Create(ctx, s); err != nil {
		t.Fatalf("Create сессии: %v", err)
	}

	s.Ranges = s.Ranges.Add(ranges.Range{Start: 500, End: 1000}).Add(ranges.Range{Start: 0, End: 100})
	s.ChunkCount = 2
	if err := repos.Uploads.Update(ctx, s); err != nil {
		t.Fatalf("Update сессии: %v", err)
	}

	got, err := repos.Uploads.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ReceivedBytes() != 600 || len(got.Ranges) != 2 {
		t.Errorf("Ranges = %v, ожидается [0,100) [500,1000)", got.Ranges)
	}

	// Вторая активная сессия того же документа запрещена
	dup := *s
	dup.ID = uuid.NewString()
	if err := repos.Uploads.Create(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create второй активной: ошибка = %v, ожидается ErrConflict", err)
	}

	n, err := repos.Uploads.ExpireStale(ctx, now.Add(2*time.Hour), now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Errorf("ExpireStale = %d, %v; ожидается 1", n, err)
	}
}

func TestAudit_AppendAndList(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAuditRepository(pool)
	ctx := context.Background()

	entityID := uuid.NewString()
	base := time.Now().UTC()
	for i, action := range []string{model.AuditCreate, model.AuditStatusChange} {
		_, err := repo.Append(ctx, &model.AuditEntry{
			Actor:      model.Actor{ID: "jdoe", DisplayName: "J. Doe"},
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			EntityType: model.EntityPublication,
			EntityID:   entityID,
			Action:     action,
			Changes: map[string]model.FieldChange{
				"status": {Before: "concept", After: "gepubliceerd"},
			},
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := repo.ListByEntity(ctx, entityID)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(entries) != 2 || entries[1].Action != model.AuditStatusChange {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Changes["status"].After != "gepubliceerd" {
		t.Errorf("Changes = %+v", entries[1].Changes)
	}
}
