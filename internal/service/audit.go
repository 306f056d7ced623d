// audit.go — журнал аудита: запись изменений и чтение истории сущности.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// changeSet накапливает изменения полей для одной записи аудита.
type changeSet map[string]model.FieldChange

// set добавляет поле, если значение изменилось.
func (c changeSet) set(field string, before, after any) {
	if reflect.DeepEqual(before, after) {
		return
	}
	c[field] = model.FieldChange{Before: before, After: after}
}

// appendAudit добавляет запись аудита в рамках транзакции r.
func appendAudit(
	ctx context.Context,
	r *repository.Repositories,
	actor model.Actor,
	ref model.EntityRef,
	action string,
	changes changeSet,
	now time.Time,
) (int64, error) {
	id, err := r.Audit.Append(ctx, &model.AuditEntry{
		Actor:      actor,
		Timestamp:  now,
		EntityType: ref.Type,
		EntityID:   ref.ID,
		Action:     action,
		Changes:    changes,
		Remarks:    actor.Remarks,
	})
	if err != nil {
		return 0, fmt.Errorf("запись аудита %s %s: %w", ref.Type, ref.ID, err)
	}
	return id, nil
}

// AuditService — чтение журнала аудита.
type AuditService struct {
	store  Store
	logger *slog.Logger
}

// NewAuditService создаёт сервис чтения журнала.
func NewAuditService(store Store, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger.With(slog.String("component", "audit")),
	}
}

// History возвращает записи сущности в хронологическом порядке.
func (s *AuditService) History(ctx context.Context, entityID string) ([]*model.AuditEntry, error) {
	entries, err := s.store.Repos().Audit.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("чтение журнала аудита: %w", err)
	}
	return entries, nil
}
