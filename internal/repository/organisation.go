package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// OrganisationRepository — интерфейс для справочника organisations.
type OrganisationRepository interface {
	GetByID(ctx context.Context, id string) (*model.Organisation, error)
	Upsert(ctx context.Context, o *model.Organisation) error
}

type organisationRepo struct {
	db DBTX
}

// NewOrganisationRepository создаёт репозиторий организаций.
func NewOrganisationRepository(db DBTX) OrganisationRepository {
	return &organisationRepo{db: db}
}

func (r *organisationRepo) GetByID(ctx context.Context, id string) (*model.Organisation, error) {
	o := &model.Organisation{}
	err := r.db.QueryRow(ctx,
		`SELECT id::text, name, rsin FROM organisations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.RSIN)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения организации: %w", err)
	}
	return o, nil
}

func (r *organisationRepo) Upsert(ctx context.Context, o *model.Organisation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO organisations (id, name, rsin) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, rsin = EXCLUDED.rsin`,
		o.ID, o.Name, o.RSIN,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения организации: %w", err)
	}
	return nil
}
