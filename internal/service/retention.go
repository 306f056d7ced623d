// retention.go — пересчёт даты архивного действия публикаций.
//
// Поводы для пересчёта: публикация, изменение связанных категорий,
// явный запрос оператора и изменение правила категории. Ручная дата
// (override) блокирует пересчёт до её снятия.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
)

var retentionRecalcTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pe_retention_recalculations_total",
	Help: "Количество пересчётов срока хранения публикаций.",
}, []string{"trigger", "result"}) // result: changed, unchanged, skipped

// Поводы пересчёта (метка trigger).
const (
	triggerPublish  = "publish"
	triggerLinks    = "category_links"
	triggerExplicit = "explicit"
	triggerCategory = "category_rule"
)

// categoryRecalcConcurrency — параллельных транзакций при пересчёте по категории.
const categoryRecalcConcurrency = 4

// CategoryRecalcResult — итог изменения правила категории.
type CategoryRecalcResult struct {
	Category *model.InformationCategory
	// Publications — число публикаций, у которых изменились поля хранения
	Publications int
}

// RetentionService — расчёт и ручное управление сроком хранения.
type RetentionService struct {
	store      Store
	categories *CategoryCache
	calc       retention.Calculator
	now        clock
	logger     *slog.Logger
}

// NewRetentionService создаёт сервис. loc — часовой пояс календарных дат.
func NewRetentionService(store Store, categories *CategoryCache, loc *time.Location, logger *slog.Logger) *RetentionService {
	return &RetentionService{
		store:      store,
		categories: categories,
		calc:       retention.NewCalculator(loc),
		now:        utcNow,
		logger:     logger.With(slog.String("component", "retention")),
	}
}

// apply пересчитывает поля хранения p и дописывает изменения в changes.
// Концепты не пересчитываются: сохранённое значение остаётся.
func (s *RetentionService) apply(ctx context.Context, p *model.Publication, trigger string, changes changeSet) error {
	if p.Status == status.Concept || p.Retention.Overridden {
		retentionRecalcTotal.WithLabelValues(trigger, "skipped").Inc()
		return nil
	}

	rules, err := s.categories.Rules(ctx, p.CategoryIDs)
	if err != nil {
		return err
	}
	next := s.calc.Recompute(p.Retention, rules, retention.Dates{
		RegisteredAt: p.RegisteredAt,
		PublishedAt:  p.PublishedAt,
	})

	before := len(changes)
	changes.set("archiveActionDate", formatDate(p.Retention.ArchiveActionDate), formatDate(next.ArchiveActionDate))
	changes.set("retentionSource", p.Retention.Source, next.Source)
	changes.set("selectionCategory", p.Retention.SelectionCategory, next.SelectionCategory)
	changes.set("archiveNomination", string(p.Retention.Nomination), string(next.Nomination))
	changes.set("retentionExplanation", p.Retention.Explanation, next.Explanation)
	p.Retention = next

	result := "unchanged"
	if len(changes) > before {
		result = "changed"
	}
	retentionRecalcTotal.WithLabelValues(trigger, result).Inc()
	return nil
}

// Recalculate явно пересчитывает срок хранения публикации.
// Для ручной даты и концептов — no-op (AuditID = 0).
func (s *RetentionService) Recalculate(ctx context.Context, actor model.Actor, publicationID string) (*PublicationResult, error) {
	return s.recalculate(ctx, actor, publicationID, triggerExplicit)
}

func (s *RetentionService) recalculate(ctx context.Context, actor model.Actor, publicationID, trigger string) (*PublicationResult, error) {
	res := &PublicationResult{}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, err := r.Publications.GetForUpdate(ctx, publicationID)
		if err != nil {
			return mapRepoErr(err, "публикация "+publicationID)
		}
		res.Publication = p

		changes := changeSet{}
		if err := s.apply(ctx, p, trigger, changes); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		now := s.now()
		p.LastModifiedAt = now
		if err := r.Publications.Update(ctx, p); err != nil {
			return mapRepoErr(err, "обновление публикации")
		}
		res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(p.ID), model.AuditRetention, changes, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetOverride фиксирует дату архивного действия вручную.
func (s *RetentionService) SetOverride(ctx context.Context, actor model.Actor, publicationID string, date time.Time) (*PublicationResult, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	res := &PublicationResult{}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, err := r.Publications.GetForUpdate(ctx, publicationID)
		if err != nil {
			return mapRepoErr(err, "публикация "+publicationID)
		}

		changes := changeSet{}
		changes.set("archiveActionDate", formatDate(p.Retention.ArchiveActionDate), formatDate(&day))
		changes.set("archiveActionDateOverridden", p.Retention.Overridden, true)
		p.Retention.ArchiveActionDate = &day
		p.Retention.Overridden = true

		now := s.now()
		p.LastModifiedAt = now
		if err := r.Publications.Update(ctx, p); err != nil {
			return mapRepoErr(err, "обновление публикации")
		}
		res.Publication = p
		res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(p.ID), model.AuditOverride, changes, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Дата архивного действия задана вручную",
		slog.String("publication_id", publicationID),
		slog.String("date", day.Format(time.DateOnly)),
	)
	return res, nil
}

// ClearOverride снимает ручную дату и сразу пересчитывает срок хранения.
func (s *RetentionService) ClearOverride(ctx context.Context, actor model.Actor, publicationID string) (*PublicationResult, error) {
	res := &PublicationResult{}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, err := r.Publications.GetForUpdate(ctx, publicationID)
		if err != nil {
			return mapRepoErr(err, "публикация "+publicationID)
		}
		res.Publication = p
		if !p.Retention.Overridden {
			return nil
		}

		changes := changeSet{}
		changes.set("archiveActionDateOverridden", true, false)
		p.Retention.Overridden = false
		if err := s.apply(ctx, p, triggerExplicit, changes); err != nil {
			return err
		}

		now := s.now()
		p.LastModifiedAt = now
		if err := r.Publications.Update(ctx, p); err != nil {
			return mapRepoErr(err, "обновление публикации")
		}
		res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(p.ID), model.AuditOverride, changes, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateCategoryRule сохраняет правило категории и пересчитывает все
// связанные публикации, каждую в своей транзакции.
func (s *RetentionService) UpdateCategoryRule(ctx context.Context, actor model.Actor, cat *model.InformationCategory) (*CategoryRecalcResult, error) {
	if err := validateCategory(cat); err != nil {
		return nil, err
	}

	if err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		return mapRepoErr(r.Categories.Upsert(ctx, cat), "сохранение категории")
	}); err != nil {
		return nil, err
	}
	s.categories.Invalidate(cat.ID)

	ids, err := s.store.Repos().Publications.ListIDsByCategory(ctx, cat.ID)
	if err != nil {
		return nil, fmt.Errorf("публикации категории %s: %w", cat.ID, err)
	}

	changed := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(categoryRecalcConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := s.recalculate(gctx, actor, id, triggerCategory)
			if err != nil {
				return fmt.Errorf("пересчёт публикации %s: %w", id, err)
			}
			changed[i] = res.AuditID != 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &CategoryRecalcResult{Category: cat}
	for _, c := range changed {
		if c {
			result.Publications++
		}
	}

	s.logger.Info("Правило категории обновлено",
		slog.String("category_id", cat.ID),
		slog.Int("linked", len(ids)),
		slog.Int("recalculated", result.Publications),
	)
	return result, nil
}

func validateCategory(cat *model.InformationCategory) error {
	if cat.ID == "" {
		return fmt.Errorf("%w: не задан UUID категории", ErrValidation)
	}
	if cat.RetentionYears < 0 {
		return fmt.Errorf("%w: отрицательный срок хранения", ErrValidation)
	}
	switch cat.Nomination {
	case retention.NominationRetain, retention.NominationDispose:
	default:
		return fmt.Errorf("%w: недопустимая архивная номинация %q", ErrValidation, cat.Nomination)
	}
	switch cat.StartEvent {
	case "":
		cat.StartEvent = retention.StartPublished
	case retention.StartPublished, retention.StartRegistered:
	default:
		return fmt.Errorf("%w: недопустимое событие начала срока %q", ErrValidation, cat.StartEvent)
	}
	return nil
}

// formatDate — дата для журнала аудита (nil → nil).
func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}
