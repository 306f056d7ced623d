// index_sync.go — синхронизатор поискового индекса (потребитель outbox).
//
// IndexSynchronizer забирает из index_sync_tasks головные задачи сущностей
// (наименьший ID среди pending) с арендой locked_until. Задачи одной
// сущности применяются строго в порядке постановки, задачи разных сущностей
// выполняются параллельно (errgroup с ограничением).
//
// На каждой попытке состояние сущности перечитывается:
//   - remove: удаляет (без force — пропускает, если сущность снова видима)
//   - upsert: видимая — upsert проекции; отозванная или удалённая — remove;
//     концепт — ничего
//
// Неудача: attempt_count+1, next_attempt_at = now + min(base·2^(n-1), ceiling).
// После MaxAttempts задача переходит в failed и не блокирует следующие
// задачи сущности.
//
// Вызов индекса ограничен сроком аренды. Complete и Fail сверяют аренду:
// если задачу тем временем взял другой обработчик, итог попытки отбрасывается.
//
// Prometheus-метрики:
//   - pe_index_sync_tasks_total — обработанные задачи по итогу
//   - pe_index_sync_duration_seconds — длительность применения задачи
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/repository"
	"github.com/bigkaa/woo-publications/internal/searchclient"
)

var (
	indexSyncTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pe_index_sync_tasks_total",
		Help: "Количество обработанных задач синхронизации индекса.",
	}, []string{"entity_type", "operation", "result"}) // result: upsert, remove, skip, retry, exhausted, lease_lost

	indexSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pe_index_sync_duration_seconds",
		Help:    "Длительность применения задачи синхронизации индекса.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"entity_type"})
)

// Indexer — операции поискового индекса. Реализуется searchclient.Client.
type Indexer interface {
	UpsertPublication(ctx context.Context, body searchclient.PublicationBody) (string, error)
	UpsertDocument(ctx context.Context, body searchclient.DocumentBody) (string, error)
	UpsertTopic(ctx context.Context, body searchclient.TopicBody) (string, error)
	Remove(ctx context.Context, t model.EntityType, id string) (string, error)
}

// SyncConfig — параметры синхронизатора.
type SyncConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	Lease          time.Duration
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
	MaxAttempts    int
}

// IndexSynchronizer — фоновый потребитель очереди синхронизации индекса.
type IndexSynchronizer struct {
	store     Store
	indexer   Indexer
	projector *Projector
	cfg       SyncConfig
	now       clock
	logger    *slog.Logger

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIndexSynchronizer создаёт синхронизатор.
func NewIndexSynchronizer(store Store, indexer Indexer, projector *Projector, cfg SyncConfig, logger *slog.Logger) *IndexSynchronizer {
	return &IndexSynchronizer{
		store:     store,
		indexer:   indexer,
		projector: projector,
		cfg:       cfg,
		now:       utcNow,
		logger:    logger.With(slog.String("component", "index_sync")),
		wake:      make(chan struct{}, 1),
	}
}

// Notify будит синхронизатор, не дожидаясь интервала опроса.
func (s *IndexSynchronizer) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start запускает фоновую горутину.
func (s *IndexSynchronizer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Синхронизация индекса запущена",
			slog.String("poll_interval", s.cfg.PollInterval.String()),
			slog.Int("batch_size", s.cfg.BatchSize),
			slog.Int("concurrency", s.cfg.Concurrency),
		)

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Синхронизация индекса остановлена")
				return
			case <-ticker.C:
			case <-s.wake:
			}
			s.drain(ctx)
		}
	}()
}

// Stop останавливает горутину и ждёт её завершения.
func (s *IndexSynchronizer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// drain обрабатывает пачки, пока очередь отдаёт полные пачки.
func (s *IndexSynchronizer) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error("Ошибка обработки очереди индекса", slog.String("error", err.Error()))
			return
		}
		if n < s.cfg.BatchSize {
			return
		}
	}
}

// RunOnce забирает одну пачку головных задач и применяет их.
// Возвращает число взятых задач.
func (s *IndexSynchronizer) RunOnce(ctx context.Context) (int, error) {
	tasks, err := s.store.Repos().Tasks.ClaimHeads(ctx, s.now(), s.cfg.Lease, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("захват задач индекса: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for _, task := range tasks {
		g.Go(func() error {
			return s.process(ctx, task)
		})
	}
	return len(tasks), g.Wait()
}

// process применяет задачу и фиксирует результат. Вызов индекса
// ограничен сроком аренды: по её истечении задачу может взять другой
// обработчик, и результат этой попытки уже не записывается.
func (s *IndexSynchronizer) process(ctx context.Context, task *model.IndexSyncTask) error {
	started := time.Now()
	applyCtx, cancel := context.WithTimeout(ctx, s.cfg.Lease)
	result, applyErr := s.apply(applyCtx, task)
	cancel()
	indexSyncDuration.WithLabelValues(string(task.EntityType)).Observe(time.Since(started).Seconds())

	log := s.logger.With(
		slog.Int64("task_id", task.ID),
		slog.String("entity_type", string(task.EntityType)),
		slog.String("entity_id", task.EntityID),
		slog.String("operation", string(task.Operation)),
	)

	var lease time.Time
	if task.LockedUntil != nil {
		lease = *task.LockedUntil
	}

	if applyErr == nil {
		if err := s.store.Repos().Tasks.Complete(ctx, task.ID, lease); err != nil {
			if errors.Is(err, repository.ErrLeaseLost) {
				s.leaseLost(log, task)
				return nil
			}
			return fmt.Errorf("завершение задачи %d: %w", task.ID, err)
		}
		indexSyncTasksTotal.WithLabelValues(string(task.EntityType), string(task.Operation), result.String()).Inc()
		log.Debug("Задача индекса выполнена", slog.String("result", result.String()))
		return nil
	}

	attempt := task.AttemptCount + 1
	exhausted := attempt >= s.cfg.MaxAttempts
	next := s.now().Add(Backoff(s.cfg.BackoffBase, s.cfg.BackoffCeiling, attempt))
	if err := s.store.Repos().Tasks.Fail(ctx, task.ID, lease, applyErr.Error(), next, exhausted); err != nil {
		if errors.Is(err, repository.ErrLeaseLost) {
			s.leaseLost(log, task)
			return nil
		}
		return fmt.Errorf("фиксация неудачи задачи %d: %w", task.ID, err)
	}

	if exhausted {
		indexSyncTasksTotal.WithLabelValues(string(task.EntityType), string(task.Operation), "exhausted").Inc()
		log.Error("Задача индекса переведена в failed",
			slog.Int("attempts", attempt),
			slog.String("error", fmt.Errorf("%w: %v", ErrIndexSyncExhausted, applyErr).Error()),
		)
		return nil
	}
	indexSyncTasksTotal.WithLabelValues(string(task.EntityType), string(task.Operation), "retry").Inc()
	log.Warn("Ошибка синхронизации индекса, повтор запланирован",
		slog.Int("attempt", attempt),
		slog.Time("next_attempt_at", next),
		slog.String("error", applyErr.Error()),
	)
	return nil
}

func (s *IndexSynchronizer) leaseLost(log *slog.Logger, task *model.IndexSyncTask) {
	indexSyncTasksTotal.WithLabelValues(string(task.EntityType), string(task.Operation), "lease_lost").Inc()
	log.Warn("Аренда задачи индекса истекла, результат попытки отброшен")
}

// apply перечитывает сущность и выполняет нужное действие в индексе.
func (s *IndexSynchronizer) apply(ctx context.Context, task *model.IndexSyncTask) (syncAction, error) {
	ref := model.EntityRef{Type: task.EntityType, ID: task.EntityID}
	proj, err := s.projector.Project(ctx, ref)
	if err != nil {
		return actionSkip, err
	}

	action := proj.action
	if task.Operation == model.IndexRemove {
		action = actionRemove
		if !task.Force && proj.action == actionUpsert {
			// Сущность снова видима: последующая задача upsert вернёт её.
			action = actionSkip
		}
	}

	switch action {
	case actionRemove:
		_, err = s.indexer.Remove(ctx, ref.Type, ref.ID)
	case actionUpsert:
		switch body := proj.body.(type) {
		case searchclient.PublicationBody:
			_, err = s.indexer.UpsertPublication(ctx, body)
		case searchclient.DocumentBody:
			_, err = s.indexer.UpsertDocument(ctx, body)
		case searchclient.TopicBody:
			_, err = s.indexer.UpsertTopic(ctx, body)
		default:
			err = fmt.Errorf("неизвестная проекция %T", proj.body)
		}
	}
	return action, err
}

// Backoff — задержка перед попыткой attempt (с 1): min(base·2^(attempt-1), ceiling).
func Backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d >= ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	return min(d, ceiling)
}

// --- Операции оператора ---

// ListFailed возвращает задачи, исчерпавшие попытки.
func (s *IndexSynchronizer) ListFailed(ctx context.Context, limit, offset int) ([]*model.IndexSyncTask, error) {
	tasks, err := s.store.Repos().Tasks.ListFailed(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("список failed-задач: %w", err)
	}
	return tasks, nil
}

// Retry возвращает failed-задачу в очередь.
func (s *IndexSynchronizer) Retry(ctx context.Context, id int64) error {
	if err := s.store.Repos().Tasks.Requeue(ctx, id, s.now()); err != nil {
		return mapRepoErr(err, fmt.Sprintf("failed-задача %d", id))
	}
	s.logger.Info("Задача индекса возвращена в очередь", slog.Int64("task_id", id))
	s.Notify()
	return nil
}

// Stats возвращает сводку очереди.
func (s *IndexSynchronizer) Stats(ctx context.Context) (model.IndexTaskStats, error) {
	st, err := s.store.Repos().Tasks.Stats(ctx)
	if err != nil {
		return model.IndexTaskStats{}, fmt.Errorf("сводка очереди индекса: %w", err)
	}
	return st, nil
}

// EntityTasks возвращает очередь задач сущности.
func (s *IndexSynchronizer) EntityTasks(ctx context.Context, ref model.EntityRef) ([]*model.IndexSyncTask, error) {
	tasks, err := s.store.Repos().Tasks.ListForEntity(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("задачи сущности %s %s: %w", ref.Type, ref.ID, err)
	}
	return tasks, nil
}
