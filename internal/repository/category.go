package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// CategoryRepository — интерфейс для таблицы information_categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*model.InformationCategory, error)
	// GetByIDs возвращает найденные категории в порядке sort_order.
	GetByIDs(ctx context.Context, ids []string) ([]*model.InformationCategory, error)
	// Upsert создаёт категорию или обновляет её правило хранения.
	Upsert(ctx context.Context, c *model.InformationCategory) error
}

type categoryRepo struct {
	db DBTX
}

// NewCategoryRepository создаёт репозиторий информационных категорий.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categorySelect = `
	SELECT id::text, name, sort_order, retention_years, nomination, start_event,
		source, selection_category, explanation
	FROM information_categories`

func scanCategory(row pgx.Row) (*model.InformationCategory, error) {
	c := &model.InformationCategory{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Order, &c.RetentionYears, &c.Nomination, &c.StartEvent,
		&c.Source, &c.SelectionCategory, &c.Explanation,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id string) (*model.InformationCategory, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, categorySelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения категории: %w", err)
	}
	return c, nil
}

func (r *categoryRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.InformationCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, categorySelect+` WHERE id = ANY($1::uuid[]) ORDER BY sort_order, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения категорий: %w", err)
	}
	defer rows.Close()

	var cats []*model.InformationCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения категории: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *categoryRepo) Upsert(ctx context.Context, c *model.InformationCategory) error {
	query := `
		INSERT INTO information_categories (id, name, sort_order, retention_years, nomination,
			start_event, source, selection_category, explanation, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sort_order = EXCLUDED.sort_order,
			retention_years = EXCLUDED.retention_years,
			nomination = EXCLUDED.nomination,
			start_event = EXCLUDED.start_event,
			source = EXCLUDED.source,
			selection_category = EXCLUDED.selection_category,
			explanation = EXCLUDED.explanation,
			updated_at = now()`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.Name, c.Order, c.RetentionYears, string(c.Nomination),
		string(c.StartEvent), c.Source, c.SelectionCategory, c.Explanation,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: недопустимое правило хранения", ErrConflict)
		}
		return fmt.Errorf("ошибка сохранения категории: %w", err)
	}
	return nil
}
