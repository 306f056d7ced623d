// bulk.go — массовые операции оператора.
//
// bulkSetStatus выполняет смену статуса каждой сущности в отдельной
// транзакции (ошибка одной не откатывает остальные). Переиндексация и
// удаление из индекса только ставят задачи в outbox одной транзакцией.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// maxBulkItems — предел размера одной массовой операции.
const maxBulkItems = 1000

// BulkItemResult — итог операции над одной сущностью.
type BulkItemResult struct {
	Ref    model.EntityRef
	Result *StatusResult
	Err    error
}

// BulkService — массовые операции.
type BulkService struct {
	store       Store
	lifecycle   *LifecycleService
	notifier    Notifier
	concurrency int
	logger      *slog.Logger
}

// NewBulkService создаёт сервис массовых операций.
func NewBulkService(store Store, lifecycle *LifecycleService, notifier Notifier, concurrency int, logger *slog.Logger) *BulkService {
	return &BulkService{
		store:       store,
		lifecycle:   lifecycle,
		notifier:    notifier,
		concurrency: max(concurrency, 1),
		logger:      logger.With(slog.String("component", "bulk")),
	}
}

func validateRefs(refs []model.EntityRef) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: пустой список сущностей", ErrValidation)
	}
	if len(refs) > maxBulkItems {
		return fmt.Errorf("%w: не более %d сущностей за раз", ErrValidation, maxBulkItems)
	}
	for _, ref := range refs {
		if !ref.Type.Valid() || ref.ID == "" {
			return fmt.Errorf("%w: недопустимая ссылка %s/%s", ErrValidation, ref.Type, ref.ID)
		}
	}
	return nil
}

// BulkSetStatus переводит сущности в статус to. Результаты — в порядке refs.
func (s *BulkService) BulkSetStatus(ctx context.Context, actor model.Actor, refs []model.EntityRef, to status.Status) ([]BulkItemResult, error) {
	if err := validateRefs(refs); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, to)
	}

	results := make([]BulkItemResult, len(refs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := s.lifecycle.SetStatus(ctx, actor, ref, to)
			results[i] = BulkItemResult{Ref: ref, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("Массовая смена статуса",
		slog.String("status", string(to)),
		slog.Int("total", len(refs)),
		slog.Int("failed", failed),
	)
	return results, nil
}

// BulkReindex ставит задачи upsert для сущностей.
func (s *BulkService) BulkReindex(ctx context.Context, refs []model.EntityRef) ([]int64, error) {
	return s.enqueueAll(ctx, refs, model.IndexUpsert, false)
}

// BulkRemoveFromIndex ставит задачи remove. force — удалить даже видимые сущности.
func (s *BulkService) BulkRemoveFromIndex(ctx context.Context, refs []model.EntityRef, force bool) ([]int64, error) {
	return s.enqueueAll(ctx, refs, model.IndexRemove, force)
}

func (s *BulkService) enqueueAll(ctx context.Context, refs []model.EntityRef, op model.IndexOperation, force bool) ([]int64, error) {
	if err := validateRefs(refs); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(refs))
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		ids = ids[:0]
		for _, ref := range refs {
			id, err := enqueue(ctx, r, ref, op, force)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify()
	}
	s.logger.Info("Задачи индекса поставлены",
		slog.String("operation", string(op)),
		slog.Bool("force", force),
		slog.Int("count", len(ids)),
	)
	return ids, nil
}
