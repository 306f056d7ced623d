package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// AuditRepository — интерфейс для журнала audit_entries (только добавление).
type AuditRepository interface {
	// Append добавляет запись и возвращает её ID.
	Append(ctx context.Context, e *model.AuditEntry) (int64, error)
	// ListByEntity возвращает записи сущности в хронологическом порядке.
	ListByEntity(ctx context.Context, entityID string) ([]*model.AuditEntry, error)
}

type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий журнала аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, e *model.AuditEntry) (int64, error) {
	changes := e.Changes
	if changes == nil {
		changes = map[string]model.FieldChange{}
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации изменений: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_entries (actor_id, actor_display_name, occurred_at,
			entity_type, entity_id, action, changes, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.Actor.ID, e.Actor.DisplayName, e.Timestamp,
		string(e.EntityType), e.EntityID, e.Action, raw, e.Remarks,
	).Scan(&e.ID)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи в журнал аудита: %w", err)
	}
	return e.ID, nil
}

func (r *auditRepo) ListByEntity(ctx context.Context, entityID string) ([]*model.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, actor_display_name, occurred_at, entity_type,
			entity_id::text, action, changes, remarks
		FROM audit_entries
		WHERE entity_id = $1
		ORDER BY occurred_at, id`, entityID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала аудита: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		e := &model.AuditEntry{}
		var raw []byte
		if err := rows.Scan(
			&e.ID, &e.Actor.ID, &e.Actor.DisplayName, &e.Timestamp, &e.EntityType,
			&e.EntityID, &e.Action, &raw, &e.Remarks,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи аудита: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Changes); err != nil {
			return nil, fmt.Errorf("некорректные изменения в записи аудита %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации журнала аудита: %w", err)
	}
	return entries, nil
}
