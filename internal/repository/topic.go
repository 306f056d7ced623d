package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// TopicRepository — интерфейс для таблицы topics.
type TopicRepository interface {
	Create(ctx context.Context, t *model.Topic) error
	GetByID(ctx context.Context, id string) (*model.Topic, error)
	GetForUpdate(ctx context.Context, id string) (*model.Topic, error)
	// GetByIDs возвращает найденные темы; отсутствующие UUID пропускаются.
	GetByIDs(ctx context.Context, ids []string) ([]*model.Topic, error)
	Update(ctx context.Context, t *model.Topic) error
}

type topicRepo struct {
	db DBTX
}

// NewTopicRepository создаёт репозиторий тем.
func NewTopicRepository(db DBTX) TopicRepository {
	return &topicRepo{db: db}
}

const topicSelect = `
	SELECT t.id::text, t.official_title, t.description, t.status, t.promoted,
		o.id::text, o.identifier, o.display_name,
		t.registered_at, t.last_modified_at, t.published_at, t.revoked_at
	FROM topics t
	JOIN owners o ON o.id = t.owner_id`

func scanTopic(row pgx.Row) (*model.Topic, error) {
	t := &model.Topic{}
	err := row.Scan(
		&t.ID, &t.OfficialTitle, &t.Description, &t.Status, &t.Promoted,
		&t.Owner.ID, &t.Owner.Identifier, &t.Owner.DisplayName,
		&t.RegisteredAt, &t.LastModifiedAt, &t.PublishedAt, &t.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *topicRepo) Create(ctx context.Context, t *model.Topic) error {
	query := `
		INSERT INTO topics (id, official_title, description, status, promoted, owner_id,
			registered_at, last_modified_at, published_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		t.ID, t.OfficialTitle, t.Description, t.Status, t.Promoted, t.Owner.ID,
		t.RegisteredAt, t.LastModifiedAt, t.PublishedAt, t.RevokedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: тема %s уже существует", ErrConflict, t.ID)
		}
		return fmt.Errorf("ошибка создания темы: %w", err)
	}
	return nil
}

func (r *topicRepo) GetByID(ctx context.Context, id string) (*model.Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx, topicSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения темы: %w", err)
	}
	return t, nil
}

func (r *topicRepo) GetForUpdate(ctx context.Context, id string) (*model.Topic, error) {
	t, err := scanTopic(r.db.QueryRow(ctx, topicSelect+` WHERE t.id = $1 FOR UPDATE OF t`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки темы: %w", err)
	}
	return t, nil
}

func (r *topicRepo) GetByIDs(ctx context.Context, ids []string) ([]*model.Topic, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, topicSelect+` WHERE t.id = ANY($1::uuid[]) ORDER BY t.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тем: %w", err)
	}
	defer rows.Close()

	var topics []*model.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения темы: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (r *topicRepo) Update(ctx context.Context, t *model.Topic) error {
	query := `
		UPDATE topics SET
			official_title = $2, description = $3, status = $4, promoted = $5, owner_id = $6,
			last_modified_at = $7, published_at = $8, revoked_at = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		t.ID, t.OfficialTitle, t.Description, t.Status, t.Promoted, t.Owner.ID,
		t.LastModifiedAt, t.PublishedAt, t.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления темы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
