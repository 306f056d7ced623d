package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// OwnerRepository — интерфейс для таблицы owners.
type OwnerRepository interface {
	// Resolve находит владельца по паре (identifier, display_name) или создаёт его.
	Resolve(ctx context.Context, identifier, displayName string) (model.Owner, error)
}

type ownerRepo struct {
	db DBTX
}

// NewOwnerRepository создаёт репозиторий владельцев.
func NewOwnerRepository(db DBTX) OwnerRepository {
	return &ownerRepo{db: db}
}

func (r *ownerRepo) Resolve(ctx context.Context, identifier, displayName string) (model.Owner, error) {
	// DO UPDATE вместо DO NOTHING, чтобы RETURNING вернул id существующей строки
	query := `
		INSERT INTO owners (identifier, display_name)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT owners_identifier_display_name_key
		DO UPDATE SET identifier = EXCLUDED.identifier
		RETURNING id::text`

	o := model.Owner{Identifier: identifier, DisplayName: displayName}
	if err := r.db.QueryRow(ctx, query, identifier, displayName).Scan(&o.ID); err != nil {
		return model.Owner{}, fmt.Errorf("ошибка получения владельца: %w", err)
	}
	return o, nil
}
