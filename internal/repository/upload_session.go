package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// UploadSessionRepository — интерфейс для таблицы upload_sessions.
type UploadSessionRepository interface {
	Create(ctx context.Context, s *model.UploadSession) error
	GetByID(ctx context.Context, id string) (*model.UploadSession, error)
	// GetForUpdate блокирует строку сессии на время слияния диапазонов.
	GetForUpdate(ctx context.Context, id string) (*model.UploadSession, error)
	// Update сохраняет диапазоны, счётчик частей, состояние и время последней части.
	Update(ctx context.Context, s *model.UploadSession) error
	// CloseActive переводит активную сессию документа в state.
	// Возвращает число затронутых сессий (0 или 1).
	CloseActive(ctx context.Context, documentID string, state model.UploadSessionState) (int64, error)
	// ExpireStale помечает expired активные сессии, у которых истёк срок
	// или не было частей с момента idleBefore.
	ExpireStale(ctx context.Context, now, idleBefore time.Time) (int64, error)
}

type uploadSessionRepo struct {
	db DBTX
}

// NewUploadSessionRepository создаёт репозиторий сессий загрузки.
func NewUploadSessionRepository(db DBTX) UploadSessionRepository {
	return &uploadSessionRepo{db: db}
}

const uploadSessionSelect = `
	SELECT id::text, document_id::text, total_size, ranges, chunk_count, state,
		started_at, last_chunk_at, expires_at
	FROM upload_sessions`

func scanUploadSession(row pgx.Row) (*model.UploadSession, error) {
	s := &model.UploadSession{}
	var raw []byte
	err := row.Scan(
		&s.ID, &s.DocumentID, &s.TotalSize, &raw, &s.ChunkCount, &s.State,
		&s.StartedAt, &s.LastChunkAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	var rs []ranges.Range
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("некорректные диапазоны сессии %s: %w", s.ID, err)
	}
	s.Ranges = ranges.Normalize(rs)
	return s, nil
}

// encodeRanges сериализует набор диапазонов в JSON-массив пар [start, end).
func encodeRanges(set ranges.Set) ([]byte, error) {
	if len(set) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(set)
}

func (r *uploadSessionRepo) Create(ctx context.Context, s *model.UploadSession) error {
	raw, err := encodeRanges(s.Ranges)
	if err != nil {
		return fmt.Errorf("ошибка сериализации диапазонов: %w", err)
	}
	query := `
		INSERT INTO upload_sessions (id, document_id, total_size, ranges, chunk_count, state,
			started_at, last_chunk_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		s.ID, s.DocumentID, s.TotalSize, raw, s.ChunkCount, string(s.State),
		s.StartedAt, s.LastChunkAt, s.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: у документа уже есть активная сессия загрузки", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: документ %s", ErrNotFound, s.DocumentID)
		}
		return fmt.Errorf("ошибка создания сессии загрузки: %w", err)
	}
	return nil
}

func (r *uploadSessionRepo) GetByID(ctx context.Context, id string) (*model.UploadSession, error) {
	s, err := scanUploadSession(r.db.QueryRow(ctx, uploadSessionSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии загрузки: %w", err)
	}
	return s, nil
}

func (r *uploadSessionRepo) GetForUpdate(ctx context.Context, id string) (*model.UploadSession, error) {
	s, err := scanUploadSession(r.db.QueryRow(ctx, uploadSessionSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки сессии загрузки: %w", err)
	}
	return s, nil
}

func (r *uploadSessionRepo) Update(ctx context.Context, s *model.UploadSession) error {
	raw, err := encodeRanges(s.Ranges)
	if err != nil {
		return fmt.Errorf("ошибка сериализации диапазонов: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE upload_sessions SET
			ranges = $2, chunk_count = $3, state = $4, last_chunk_at = $5
		WHERE id = $1`,
		s.ID, raw, s.ChunkCount, string(s.State), s.LastChunkAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления сессии загрузки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *uploadSessionRepo) CloseActive(ctx context.Context, documentID string, state model.UploadSessionState) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE upload_sessions SET state = $2
		WHERE document_id = $1 AND state = 'active'`,
		documentID, string(state),
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия сессий загрузки: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *uploadSessionRepo) ExpireStale(ctx context.Context, now, idleBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE upload_sessions SET state = 'expired'
		WHERE state = 'active'
			AND (expires_at <= $1 OR COALESCE(last_chunk_at, started_at) < $2)`,
		now, idleBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка истечения сессий загрузки: %w", err)
	}
	return tag.RowsAffected(), nil
}
