package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/woo-publications/internal/domain/model"
)

// DocumentRepository — интерфейс для таблиц documents и document_handlings.
type DocumentRepository interface {
	// Create сохраняет новый документ.
	Create(ctx context.Context, d *model.Document) error
	// GetByID возвращает документ по UUID.
	GetByID(ctx context.Context, id string) (*model.Document, error)
	// GetForUpdate возвращает документ с блокировкой строки.
	GetForUpdate(ctx context.Context, id string) (*model.Document, error)
	// Update сохраняет изменяемые поля документа, включая состояние загрузки.
	Update(ctx context.Context, d *model.Document) error
	// Delete удаляет документ (сессии и запись обработки удаляются каскадно).
	Delete(ctx context.Context, id string) error
	// ListByPublication возвращает документы публикации в порядке UUID.
	ListByPublication(ctx context.Context, publicationID string) ([]*model.Document, error)
	// ListByPublicationForUpdate — то же с блокировкой строк (каскады статусов).
	ListByPublicationForUpdate(ctx context.Context, publicationID string) ([]*model.Document, error)
	// UpsertHandling создаёт или перезаписывает запись обработки документа.
	UpsertHandling(ctx context.Context, h *model.DocumentHandling) error
	// GetHandling возвращает запись обработки документа.
	GetHandling(ctx context.Context, documentID string) (*model.DocumentHandling, error)
}

type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

const documentSelect = `
	SELECT d.id::text, d.publication_id::text, d.identifier, d.official_title, d.short_title,
		d.description, d.creation_date, d.file_format, d.file_name, d.file_size, d.status,
		o.id::text, o.identifier, o.display_name,
		d.registered_at, d.last_modified_at, d.published_at, d.revoked_at,
		d.received_date, d.signed_date, d.source_url,
		d.upload_service, d.remote_document_id, d.lock_value, d.upload_complete
	FROM documents d
	JOIN owners o ON o.id = d.owner_id`

func scanDocument(row pgx.Row) (*model.Document, error) {
	d := &model.Document{}
	err := row.Scan(
		&d.ID, &d.PublicationID, &d.Identifier, &d.OfficialTitle, &d.ShortTitle,
		&d.Description, &d.CreationDate, &d.FileFormat, &d.FileName, &d.FileSize, &d.Status,
		&d.Owner.ID, &d.Owner.Identifier, &d.Owner.DisplayName,
		&d.RegisteredAt, &d.LastModifiedAt, &d.PublishedAt, &d.RevokedAt,
		&d.ReceivedDate, &d.SignedDate, &d.SourceURL,
		&d.Upload.Service, &d.Upload.RemoteID, &d.Upload.Lock, &d.Upload.Complete,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	query := `
		INSERT INTO documents (id, publication_id, identifier, official_title, short_title,
			description, creation_date, file_format, file_name, file_size, status, owner_id,
			registered_at, last_modified_at, published_at, revoked_at,
			received_date, signed_date, source_url,
			upload_service, remote_document_id, lock_value, upload_complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23)`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.PublicationID, d.Identifier, d.OfficialTitle, d.ShortTitle,
		d.Description, d.CreationDate, d.FileFormat, d.FileName, d.FileSize, d.Status, d.Owner.ID,
		d.RegisteredAt, d.LastModifiedAt, d.PublishedAt, d.RevokedAt,
		d.ReceivedDate, d.SignedDate, d.SourceURL,
		d.Upload.Service, d.Upload.RemoteID, d.Upload.Lock, d.Upload.Complete,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: документ %s уже существует", ErrConflict, d.ID)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: публикация %s", ErrNotFound, d.PublicationID)
		case isCheckViolation(err):
			return fmt.Errorf("%w: опубликованный документ без загруженного файла", ErrConflict)
		}
		return fmt.Errorf("ошибка создания документа: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, documentSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, id string) (*model.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, documentSelect+` WHERE d.id = $1 FOR UPDATE OF d`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка блокировки документа: %w", err)
	}
	return d, nil
}

func (r *documentRepo) Update(ctx context.Context, d *model.Document) error {
	query := `
		UPDATE documents SET
			identifier = $2, official_title = $3, short_title = $4, description = $5,
			creation_date = $6, file_format = $7, file_name = $8, file_size = $9,
			status = $10, owner_id = $11, last_modified_at = $12,
			published_at = $13, revoked_at = $14, received_date = $15, signed_date = $16,
			source_url = $17, upload_service = $18, remote_document_id = $19,
			lock_value = $20, upload_complete = $21
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		d.ID, d.Identifier, d.OfficialTitle, d.ShortTitle, d.Description,
		d.CreationDate, d.FileFormat, d.FileName, d.FileSize,
		d.Status, d.Owner.ID, d.LastModifiedAt,
		d.PublishedAt, d.RevokedAt, d.ReceivedDate, d.SignedDate,
		d.SourceURL, d.Upload.Service, d.Upload.RemoteID,
		d.Upload.Lock, d.Upload.Complete,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: опубликованный документ без загруженного файла", ErrConflict)
		}
		return fmt.Errorf("ошибка обновления документа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления документа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *documentRepo) ListByPublication(ctx context.Context, publicationID string) ([]*model.Document, error) {
	return r.list(ctx, documentSelect+` WHERE d.publication_id = $1 ORDER BY d.id`, publicationID)
}

func (r *documentRepo) ListByPublicationForUpdate(ctx context.Context, publicationID string) ([]*model.Document, error) {
	return r.list(ctx, documentSelect+` WHERE d.publication_id = $1 ORDER BY d.id FOR UPDATE OF d`, publicationID)
}

func (r *documentRepo) list(ctx context.Context, query string, args ...any) ([]*model.Document, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения документов: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения документа: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации документов: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpsertHandling(ctx context.Context, h *model.DocumentHandling) error {
	query := `
		INSERT INTO document_handlings (document_id, kind, occurred_at, organisation_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			occurred_at = EXCLUDED.occurred_at,
			organisation_id = EXCLUDED.organisation_id`

	_, err := r.db.Exec(ctx, query, h.DocumentID, h.Kind, h.OccurredAt, h.OrganisationID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: документ или организация", ErrNotFound)
		}
		return fmt.Errorf("ошибка сохранения записи обработки: %w", err)
	}
	return nil
}

func (r *documentRepo) GetHandling(ctx context.Context, documentID string) (*model.DocumentHandling, error) {
	h := &model.DocumentHandling{}
	err := r.db.QueryRow(ctx, `
		SELECT document_id::text, kind, occurred_at, organisation_id::text
		FROM document_handlings WHERE document_id = $1`, documentID,
	).Scan(&h.DocumentID, &h.Kind, &h.OccurredAt, &h.OrganisationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи обработки: %w", err)
	}
	return h, nil
}
