package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// PublicationRepository — интерфейс для таблицы publications и её связей.
type PublicationRepository interface {
	// Create сохраняет новую публикацию вместе со связями категорий и тем.
	Create(ctx context.Context, p *model.Publication) error
	// GetByID возвращает публикацию по UUID.
	GetByID(ctx context.Context, id string) (*model.Publication, error)
	// GetForUpdate возвращает публикацию с блокировкой строки (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*model.Publication, error)
	// Update сохраняет изменяемые поля и заменяет связи категорий и тем.
	Update(ctx context.Context, p *model.Publication) error
	// ListIDsByCategory возвращает UUID публикаций, связанных с категорией.
	ListIDsByCategory(ctx context.Context, categoryID string) ([]string, error)
}

type publicationRepo struct {
	db DBTX
}

// NewPublicationRepository создаёт репозиторий публикаций.
func NewPublicationRepository(db DBTX) PublicationRepository {
	return &publicationRepo{db: db}
}

const publicationSelect = `
	SELECT p.id::text, p.official_title, p.short_title, p.description, p.status,
		p.publisher_id::text, p.responsible_id::text, p.drafter_id::text,
		o.id::text, o.identifier, o.display_name,
		p.registered_at, p.last_modified_at, p.published_at, p.revoked_at,
		p.valid_from, p.valid_until,
		p.archive_action_date, p.archive_action_date_overridden,
		p.retention_source, p.selection_category, p.archive_nomination, p.retention_explanation,
		COALESCE((SELECT array_agg(pc.category_id::text ORDER BY pc.category_id)
			FROM publication_categories pc WHERE pc.publication_id = p.id), '{}'),
		COALESCE((SELECT array_agg(pt.topic_id::text ORDER BY pt.topic_id)
			FROM publication_topics pt WHERE pt.publication_id = p.id), '{}')
	FROM publications p
	JOIN owners o ON o.id = p.owner_id`

func scanPublication(row pgx.Row) (*model.Publication, error) {
	p := &model.Publication{}
	err := row.Scan(
		&p.ID, &p.OfficialTitle, &p.ShortTitle, &p.Description, &p.Status,
		&p.PublisherID, &p.ResponsibleID, &p.DrafterID,
		&p.Owner.ID, &p.Owner.Identifier, &p.Owner.DisplayName,
		&p.RegisteredAt, &p.LastModifiedAt, &p.PublishedAt, &p.RevokedAt,
		&p.ValidFrom, &p.ValidUntil,
		&p.Retention.ArchiveActionDate, &p.Retention.Overridden,
		&p.Retention.Source, &p.Retention.SelectionCategory,
		&p.Retention.Nomination, &p.Retention.Explanation,
		&p.CategoryIDs, &p.TopicIDs,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *publicationRepo) Create(ctx context.Context, p *model.Publication) error {
	query := `
		INSERT INTO publications (id, official_title, short_title, description, status,
			publisher_id, responsible_id, drafter_id, owner_id,
			registered_at, last_modified_at, published_at, revoked_at, valid_from, valid_until,
			archive_action_date, archive_action_date_overridden,
			retention_source, selection_category, archive_nomination, retention_explanation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.OfficialTitle, p.ShortTitle, p.Description, p.Status,
		p.PublisherID, p.ResponsibleID, p.DrafterID, p.Owner.ID,
		p.RegisteredAt, p.LastModifiedAt, p.PublishedAt, p.RevokedAt, p.ValidFrom, p.ValidUntil,
		p.Retention.ArchiveActionDate, p.Retention.Overridden,
		p.Retention.Source, p.Retention.SelectionCategory,
		string(p.Retention.Nomination), p.Retention.Explanation,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: публикация %s уже существует", ErrConflict, p.ID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: ссылка на несуществующую организацию", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания публикации: %w", err)
	}
	return r.replaceLinks(ctx, p)
}

func (r *publicationRepo) GetByID(ctx context.Context, id string) (*model.Publication, error) {
	p, err := scanPublication(r.db.QueryRow(ctx, publicationSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения публикации: %w", err)
	}
	return p, nil
}

func (r *publicationRepo) GetForUpdate(ctx context.Context, id string) (*model.Publication, error) {
	p, err := scanPublication(r.db.QueryRow(ctx, publicationSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки публикации: %w", err)
	}
	return p, nil
}

func (r *publicationRepo) Update(ctx context.Context, p *model.Publication) error {
	query := `
		UPDATE publications SET
			official_title = $2, short_title = $3, description = $4, status = $5,
			publisher_id = $6, responsible_id = $7, drafter_id = $8, owner_id = $9,
			last_modified_at = $10, published_at = $11, revoked_at = $12,
			valid_from = $13, valid_until = $14,
			archive_action_date = $15, archive_action_date_overridden = $16,
			retention_source = $17, selection_category = $18,
			archive_nomination = $19, retention_explanation = $20
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		p.ID, p.OfficialTitle, p.ShortTitle, p.Description, p.Status,
		p.PublisherID, p.ResponsibleID, p.DrafterID, p.Owner.ID,
		p.LastModifiedAt, p.PublishedAt, p.RevokedAt,
		p.ValidFrom, p.ValidUntil,
		p.Retention.ArchiveActionDate, p.Retention.Overridden,
		p.Retention.Source, p.Retention.SelectionCategory,
		string(p.Retention.Nomination), p.Retention.Explanation,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: ссылка на несуществующую организацию", ErrNotFound)
		}
		return fmt.Errorf("ошибка обновления публикации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.replaceLinks(ctx, p)
}

// replaceLinks перезаписывает связи публикации с категориями и темами.
func (r *publicationRepo) replaceLinks(ctx context.Context, p *model.Publication) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM publication_categories WHERE publication_id = $1`, p.ID); err != nil {
		return fmt.Errorf("ошибка удаления связей категорий: %w", err)
	}
	if len(p.CategoryIDs) > 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO publication_categories (publication_id, category_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, p.ID, p.CategoryIDs)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: информационная категория", ErrNotFound)
			}
			return fmt.Errorf("ошибка сохранения связей категорий: %w", err)
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM publication_topics WHERE publication_id = $1`, p.ID); err != nil {
		return fmt.Errorf("ошибка удаления связей тем: %w", err)
	}
	if len(p.TopicIDs) > 0 {
		_, err := r.db.Exec(ctx, `
			INSERT INTO publication_topics (publication_id, topic_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`, p.ID, p.TopicIDs)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: тема", ErrNotFound)
			}
			return fmt.Errorf("ошибка сохранения связей тем: %w", err)
		}
	}
	return nil
}

func (r *publicationRepo) ListIDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT publication_id::text FROM publication_categories
		WHERE category_id = $1
		ORDER BY publication_id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения публикаций категории: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения публикаций категории: %w", err)
	}
	return ids, nil
}
