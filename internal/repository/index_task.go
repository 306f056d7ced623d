package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// IndexTaskRepository — интерфейс для outbox-таблицы index_sync_tasks.
type IndexTaskRepository interface {
	// Enqueue добавляет задачу в хвост очереди сущности и возвращает её ID.
	Enqueue(ctx context.Context, ref model.EntityRef, op model.IndexOperation, force bool) (int64, error)
	// ClaimHeads берёт в аренду до limit головных задач разных сущностей,
	// у которых наступило время попытки.
	ClaimHeads(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.IndexSyncTask, error)
	// Complete удаляет выполненную задачу, если аренда lockedUntil ещё за
	// обработчиком. Иначе — ErrLeaseLost.
	Complete(ctx context.Context, id int64, lockedUntil time.Time) error
	// Fail фиксирует неудачную попытку под той же аренды, что и Complete.
	// exhausted — перевести задачу в failed.
	Fail(ctx context.Context, id int64, lockedUntil time.Time, lastErr string, nextAttemptAt time.Time, exhausted bool) error
	// ListFailed возвращает задачи в состоянии failed в порядке постановки.
	ListFailed(ctx context.Context, limit, offset int) ([]*model.IndexSyncTask, error)
	// ListForEntity возвращает все задачи сущности в порядке постановки.
	ListForEntity(ctx context.Context, ref model.EntityRef) ([]*model.IndexSyncTask, error)
	// Requeue возвращает failed-задачу в очередь со сброшенным счётчиком попыток.
	Requeue(ctx context.Context, id int64, now time.Time) error
	// Stats возвращает количество задач по состояниям.
	Stats(ctx context.Context) (model.IndexTaskStats, error)
}

type indexTaskRepo struct {
	db DBTX
}

// NewIndexTaskRepository создаёт репозиторий задач синхронизации.
func NewIndexTaskRepository(db DBTX) IndexTaskRepository {
	return &indexTaskRepo{db: db}
}

const indexTaskColumns = `id, entity_type, entity_id::text, operation, force, enqueued_at,
	attempt_count, last_error, state, next_attempt_at, locked_until`

func scanIndexTask(row pgx.Row) (*model.IndexSyncTask, error) {
	t := &model.IndexSyncTask{}
	err := row.Scan(
		&t.ID, &t.EntityType, &t.EntityID, &t.Operation, &t.Force, &t.EnqueuedAt,
		&t.AttemptCount, &t.LastError, &t.State, &t.NextAttemptAt, &t.LockedUntil,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func collectIndexTasks(rows pgx.Rows) ([]*model.IndexSyncTask, error) {
	defer rows.Close()
	var tasks []*model.IndexSyncTask
	for rows.Next() {
		t, err := scanIndexTask(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения задачи синхронизации: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации задач синхронизации: %w", err)
	}
	return tasks, nil
}

func (r *indexTaskRepo) Enqueue(ctx context.Context, ref model.EntityRef, op model.IndexOperation, force bool) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO index_sync_tasks (entity_type, entity_id, operation, force)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		string(ref.Type), ref.ID, string(op), force,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка постановки задачи синхронизации: %w", err)
	}
	return id, nil
}

// ClaimHeads: голова сущности — pending-задача с наименьшим id. Пока голова
// ждёт повторной попытки или арендована, остальные задачи сущности не берутся.
// Повторная проверка locked_until в UPDATE отсекает гонку двух процессов.
func (r *indexTaskRepo) ClaimHeads(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*model.IndexSyncTask, error) {
	query := `
		WITH heads AS (
			SELECT DISTINCT ON (entity_type, entity_id) id, next_attempt_at, locked_until
			FROM index_sync_tasks
			WHERE state = 'pending'
			ORDER BY entity_type, entity_id, id
		), ready AS (
			SELECT id FROM heads
			WHERE next_attempt_at <= $1
				AND (locked_until IS NULL OR locked_until < $1)
			ORDER BY id
			LIMIT $3
		)
		UPDATE index_sync_tasks t
		SET locked_until = $2
		FROM ready
		WHERE t.id = ready.id
			AND t.state = 'pending'
			AND (t.locked_until IS NULL OR t.locked_until < $1)
		RETURNING t.id, t.entity_type, t.entity_id::text, t.operation, t.force, t.enqueued_at,
			t.attempt_count, t.last_error, t.state, t.next_attempt_at, t.locked_until`

	rows, err := r.db.Query(ctx, query, now, now.Add(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка захвата задач синхронизации: %w", err)
	}
	return collectIndexTasks(rows)
}

// Complete и Fail сверяют locked_until со значением, выданным ClaimHeads:
// после истечения аренды задачу мог взять другой обработчик.
func (r *indexTaskRepo) Complete(ctx context.Context, id int64, lockedUntil time.Time) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM index_sync_tasks WHERE id = $1 AND locked_until = $2`, id, lockedUntil)
	if err != nil {
		return fmt.Errorf("ошибка удаления задачи синхронизации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *indexTaskRepo) Fail(ctx context.Context, id int64, lockedUntil time.Time, lastErr string, nextAttemptAt time.Time, exhausted bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE index_sync_tasks SET
			attempt_count = attempt_count + 1,
			last_error = $3,
			next_attempt_at = $4,
			locked_until = NULL,
			state = CASE WHEN $5 THEN 'failed' ELSE 'pending' END
		WHERE id = $1 AND locked_until = $2`,
		id, lockedUntil, lastErr, nextAttemptAt, exhausted,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения неудачной попытки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (r *indexTaskRepo) ListFailed(ctx context.Context, limit, offset int) ([]*model.IndexSyncTask, error) {
	rows, err := r.db.Query(ctx, `SELECT `+indexTaskColumns+`
		FROM index_sync_tasks WHERE state = 'failed'
		ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения failed-задач: %w", err)
	}
	return collectIndexTasks(rows)
}

func (r *indexTaskRepo) ListForEntity(ctx context.Context, ref model.EntityRef) ([]*model.IndexSyncTask, error) {
	rows, err := r.db.Query(ctx, `SELECT `+indexTaskColumns+`
		FROM index_sync_tasks WHERE entity_type = $1 AND entity_id = $2
		ORDER BY id`, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения задач сущности: %w", err)
	}
	return collectIndexTasks(rows)
}

func (r *indexTaskRepo) Requeue(ctx context.Context, id int64, now time.Time) error {
	var state string
	err := r.db.QueryRow(ctx, `
		UPDATE index_sync_tasks SET
			state = 'pending', attempt_count = 0, next_attempt_at = $2, locked_until = NULL
		WHERE id = $1 AND state = 'failed'
		RETURNING state`, id, now,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка повторной постановки задачи: %w", err)
	}
	return nil
}

func (r *indexTaskRepo) Stats(ctx context.Context) (model.IndexTaskStats, error) {
	var s model.IndexTaskStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE state = 'pending'),
			COUNT(*) FILTER (WHERE state = 'failed')
		FROM index_sync_tasks`,
	).Scan(&s.Pending, &s.Failed)
	if err != nil {
		return s, fmt.Errorf("ошибка подсчёта задач синхронизации: %w", err)
	}
	return s, nil
}
