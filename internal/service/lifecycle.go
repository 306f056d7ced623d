// lifecycle.go — регистрация сущностей и жизненный цикл статусов.
//
// Каждая операция — одна транзакция: изменение записи, запись аудита и
// задачи outbox (index_sync_tasks) фиксируются вместе. Поисковый индекс
// на пути запроса не вызывается.
//
// Порядок блокировок: публикация, затем её документы.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// OwnerInput — владелец, указанный вызывающей стороной.
type OwnerInput struct {
	Identifier  string
	DisplayName string
}

// PublicationInput — данные новой публикации.
type PublicationInput struct {
	OfficialTitle string
	ShortTitle    string
	Description   string
	PublisherID   *string
	ResponsibleID *string
	DrafterID     *string
	CategoryIDs   []string
	TopicIDs      []string
	// Status — начальный статус; пустой — concept
	Status     status.Status
	ValidFrom  *time.Time
	ValidUntil *time.Time
	// Owner — nil: владельцем становится инициатор
	Owner *OwnerInput
}

// PublicationPatch — частичное изменение публикации. nil — поле не меняется.
// Для ссылок на организации пустая строка снимает ссылку.
type PublicationPatch struct {
	OfficialTitle *string
	ShortTitle    *string
	Description   *string
	PublisherID   *string
	ResponsibleID *string
	DrafterID     *string
	CategoryIDs   *[]string
	TopicIDs      *[]string
	ValidFrom     *time.Time
	ValidUntil    *time.Time
}

// DocumentInput — данные нового документа.
type DocumentInput struct {
	Identifier    string
	OfficialTitle string
	ShortTitle    string
	Description   string
	// CreationDate — nil: дата регистрации
	CreationDate *time.Time
	FileFormat   string
	FileName     string
	FileSize     int64
	ReceivedDate *time.Time
	SignedDate   *time.Time
	SourceURL    string
	Owner        *OwnerInput
}

// DocumentPatch — частичное изменение метаданных документа.
type DocumentPatch struct {
	Identifier    *string
	OfficialTitle *string
	ShortTitle    *string
	Description   *string
	CreationDate  *time.Time
	FileFormat    *string
	FileName      *string
	ReceivedDate  *time.Time
	SignedDate    *time.Time
	SourceURL     *string
}

// TopicInput — данные новой темы.
type TopicInput struct {
	OfficialTitle string
	Description   string
	Promoted      bool
	// Status — пустой: gepubliceerd
	Status status.Status
	Owner  *OwnerInput
}

// PublicationResult — снимок публикации и ID записи аудита (0 — изменений нет).
type PublicationResult struct {
	Publication *model.Publication
	AuditID     int64
}

// DocumentResult — снимок документа и ID записи аудита.
type DocumentResult struct {
	Document *model.Document
	AuditID  int64
}

// TopicResult — снимок темы и ID записи аудита.
type TopicResult struct {
	Topic   *model.Topic
	AuditID int64
}

// StatusResult — итог смены статуса. Заполнен снимок сущности своего типа.
type StatusResult struct {
	Ref     model.EntityRef
	From    status.Status
	To      status.Status
	AuditID int64
	// Cascaded — документы, сменившие статус вместе с публикацией
	Cascaded []string
	// TaskIDs — задачи outbox, поставленные транзакцией
	TaskIDs []int64

	Publication *model.Publication
	Document    *model.Document
	Topic       *model.Topic
}

// LifecycleService — регистрация и смена статусов публикаций, документов и тем.
type LifecycleService struct {
	store     Store
	retention *RetentionService
	docs      docstore.Store
	notifier  Notifier
	now       clock
	logger    *slog.Logger
}

// NewLifecycleService создаёт сервис жизненного цикла.
// docs и notifier могут быть nil.
func NewLifecycleService(
	store Store,
	retention *RetentionService,
	docs docstore.Store,
	notifier Notifier,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:     store,
		retention: retention,
		docs:      docs,
		notifier:  notifier,
		now:       utcNow,
		logger:    logger.With(slog.String("component", "lifecycle")),
	}
}

func publicationRef(id string) model.EntityRef {
	return model.EntityRef{Type: model.EntityPublication, ID: id}
}

func documentRef(id string) model.EntityRef {
	return model.EntityRef{Type: model.EntityDocument, ID: id}
}

func topicRef(id string) model.EntityRef {
	return model.EntityRef{Type: model.EntityTopic, ID: id}
}

func (s *LifecycleService) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// --- Чтение ---

// GetPublication возвращает публикацию по UUID.
func (s *LifecycleService) GetPublication(ctx context.Context, id string) (*model.Publication, error) {
	p, err := s.store.Repos().Publications.GetByID(ctx, id)
	return p, mapRepoErr(err, "публикация "+id)
}

// GetDocument возвращает документ и его запись обработки.
func (s *LifecycleService) GetDocument(ctx context.Context, id string) (*model.Document, *model.DocumentHandling, error) {
	repos := s.store.Repos()
	d, err := repos.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoErr(err, "документ "+id)
	}
	h, err := repos.Documents.GetHandling(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("запись обработки документа %s: %w", id, err)
	}
	return d, h, nil
}

// ListDocuments возвращает документы публикации.
func (s *LifecycleService) ListDocuments(ctx context.Context, publicationID string) ([]*model.Document, error) {
	if _, err := s.GetPublication(ctx, publicationID); err != nil {
		return nil, err
	}
	docs, err := s.store.Repos().Documents.ListByPublication(ctx, publicationID)
	if err != nil {
		return nil, fmt.Errorf("документы публикации %s: %w", publicationID, err)
	}
	return docs, nil
}

// GetTopic возвращает тему по UUID.
func (s *LifecycleService) GetTopic(ctx context.Context, id string) (*model.Topic, error) {
	t, err := s.store.Repos().Topics.GetByID(ctx, id)
	return t, mapRepoErr(err, "тема "+id)
}

// --- Регистрация ---

// RegisterPublication создаёт публикацию в статусе concept или gepubliceerd.
func (s *LifecycleService) RegisterPublication(ctx context.Context, actor model.Actor, in PublicationInput) (*PublicationResult, error) {
	if strings.TrimSpace(in.OfficialTitle) == "" {
		return nil, fmt.Errorf("%w: officialTitle обязателен", ErrValidation)
	}
	st := in.Status
	if st == "" {
		st = status.Concept
	}
	if st != status.Concept && st != status.Published {
		return nil, fmt.Errorf("%w: публикация создаётся только в статусе concept или gepubliceerd", ErrValidation)
	}

	now := s.now()
	p := &model.Publication{
		ID:             uuid.NewString(),
		OfficialTitle:  in.OfficialTitle,
		ShortTitle:     in.ShortTitle,
		Description:    in.Description,
		Status:         st,
		PublisherID:    normalizeRef(in.PublisherID),
		ResponsibleID:  normalizeRef(in.ResponsibleID),
		DrafterID:      normalizeRef(in.DrafterID),
		CategoryIDs:    dedupe(in.CategoryIDs),
		TopicIDs:       dedupe(in.TopicIDs),
		RegisteredAt:   now,
		LastModifiedAt: now,
		ValidFrom:      in.ValidFrom,
		ValidUntil:     in.ValidUntil,
	}
	if st == status.Published {
		p.PublishedAt = &now
	}

	res := &PublicationResult{Publication: p}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		if err := validatePublicationRefs(ctx, r, p); err != nil {
			return err
		}
		owner, err := resolveOwner(ctx, r, actor, in.Owner)
		if err != nil {
			return err
		}
		p.Owner = owner

		changes := changeSet{}
		if err := s.retention.apply(ctx, p, triggerPublish, changeSet{}); err != nil {
			return err
		}
		if err := r.Publications.Create(ctx, p); err != nil {
			return mapRepoErr(err, "создание публикации")
		}

		changes.set("officialTitle", nil, p.OfficialTitle)
		changes.set("status", nil, string(p.Status))
		changes.set("owner", nil, owner.Identifier)
		changes.set("informatieCategorieen", nil, p.CategoryIDs)
		res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(p.ID), model.AuditCreate, changes, now)
		if err != nil {
			return err
		}

		if st == status.Published {
			_, err = enqueue(ctx, r, publicationRef(p.ID), model.IndexUpsert, false)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Публикация зарегистрирована",
		slog.String("publication_id", p.ID),
		slog.String("status", string(p.Status)),
	)
	if st == status.Published {
		s.notify()
	}
	return res, nil
}

// RegisterDocument создаёт документ в статусе concept и его запись обработки.
func (s *LifecycleService) RegisterDocument(ctx context.Context, actor model.Actor, publicationID string, in DocumentInput) (*DocumentResult, error) {
	if strings.TrimSpace(in.OfficialTitle) == "" {
		return nil, fmt.Errorf("%w: officialTitle обязателен", ErrValidation)
	}
	if in.FileSize < 0 {
		return nil, fmt.Errorf("%w: отрицательный размер файла", ErrValidation)
	}

	now := s.now()
	creation := now
	if in.CreationDate != nil {
		creation = *in.CreationDate
	}
	d := &model.Document{
		ID:             uuid.NewString(),
		PublicationID:  publicationID,
		Identifier:     in.Identifier,
		OfficialTitle:  in.OfficialTitle,
		ShortTitle:     in.ShortTitle,
		Description:    in.Description,
		CreationDate:   creation,
		FileFormat:     in.FileFormat,
		FileName:       in.FileName,
		FileSize:       in.FileSize,
		Status:         status.Concept,
		RegisteredAt:   now,
		LastModifiedAt: now,
		ReceivedDate:   in.ReceivedDate,
		SignedDate:     in.SignedDate,
		SourceURL:      in.SourceURL,
	}

	res := &DocumentResult{Document: d}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, err := r.Publications.GetForUpdate(ctx, publicationID)
		if err != nil {
			return mapRepoErr(err, "публикация "+publicationID)
		}
		if p.Status == status.Revoked {
			return fmt.Errorf("%w: публикация %s отозвана", ErrInvalidTransition, publicationID)
		}

		owner, err := resolveOwner(ctx, r, actor, in.Owner)
		if err != nil {
			return err
		}
		d.Owner = owner

		if err := r.Documents.Create(ctx, d); err != nil {
			return mapRepoErr(err, "создание документа")
		}
		if err := r.Documents.UpsertHandling(ctx, &model.DocumentHandling{
			DocumentID:     d.ID,
			Kind:           model.HandlingKindReceipt,
			OccurredAt:     d.RegisteredAt,
			OrganisationID: p.ResponsibleID,
		}); err != nil {
			return fmt.Errorf("запись обработки документа: %w", err)
		}

		changes := changeSet{}
		changes.set("officialTitle", nil, d.OfficialTitle)
		changes.set("publicatie", nil, d.PublicationID)
		changes.set("status", nil, string(d.Status))
		changes.set("owner", nil, owner.Identifier)
		res.AuditID, err = appendAudit(ctx, r, actor, documentRef(d.ID), model.AuditCreate, changes, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Документ зарегистрирован",
		slog.String("document_id", d.ID),
		slog.String("publication_id", publicationID),
	)
	return res, nil
}

// RegisterTopic создаёт тему. По умолчанию тема сразу опубликована.
func (s *LifecycleService) RegisterTopic(ctx context.Context, actor model.Actor, in TopicInput) (*TopicResult, error) {
	if strings.TrimSpace(in.OfficialTitle) == "" {
		return nil, fmt.Errorf("%w: officialTitle обязателен", ErrValidation)
	}
	st := in.Status
	if st == "" {
		st = status.Published
	}
	if st != status.Concept && st != status.Published {
		return nil, fmt.Errorf("%w: тема не может быть создана в статусе %q", ErrValidation, st)
	}

	now := s.now()
	t := &model.Topic{
		ID:             uuid.NewString(),
		OfficialTitle:  in.OfficialTitle,
		Description:    in.Description,
		Status:         st,
		Promoted:       in.Promoted,
		RegisteredAt:   now,
		LastModifiedAt: now,
	}
	if st == status.Published {
		t.PublishedAt = &now
	}

	res := &TopicResult{Topic: t}
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		owner, err := resolveOwner(ctx, r, actor, in.Owner)
		if err != nil {
			return err
		}
		t.Owner = owner
		if err := r.Topics.Create(ctx, t); err != nil {
			return mapRepoErr(err, "создание темы")
		}

		changes := changeSet{}
		changes.set("officialTitle", nil, t.OfficialTitle)
		changes.set("status", nil, string(t.Status))
		res.AuditID, err = appendAudit(ctx, r, actor, topicRef(t.ID), model.AuditCreate, changes, now)
		if err != nil {
			return err
		}
		if st == status.Published {
			_, err = enqueue(ctx, r, topicRef(t.ID), model.IndexUpsert, false)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if st == status.Published {
		s.notify()
	}
	return res, nil
}

// --- Изменение метаданных ---

// UpdatePublication применяет частичное изменение публикации.
// Смена категорий пересчитывает срок хранения, смена ответственной
// организации перезаписывает записи обработки всех документов.
func (s *LifecycleService) UpdatePublication(ctx context.Context, actor model.Actor, id string, patch PublicationPatch) (*PublicationResult, error) {
	res := &PublicationResult{}
	enqueued := false

	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, err := r.Publications.GetForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, "публикация "+id)
		}
		res.Publication = p
		if p.Status == status.Revoked {
			return fmt.Errorf("%w: отозванная публикация не изменяется", ErrConflict)
		}

		changes := changeSet{}
		if patch.OfficialTitle != nil {
			if strings.TrimSpace(*patch.OfficialTitle) == "" {
				return fmt.Errorf("%w: officialTitle не может быть пустым", ErrValidation)
			}
			changes.set("officialTitle", p.OfficialTitle, *patch.OfficialTitle)
			p.OfficialTitle = *patch.OfficialTitle
		}
		if patch.ShortTitle != nil {
			changes.set("shortTitle", p.ShortTitle, *patch.ShortTitle)
			p.ShortTitle = *patch.ShortTitle
		}
		if patch.Description != nil {
			changes.set("description", p.Description, *patch.Description)
			p.Description = *patch.Description
		}

		publisherChanged := false
		if patch.PublisherID != nil {
			next := normalizeRef(patch.PublisherID)
			publisherChanged = derefOr(p.PublisherID) != derefOr(next)
			changes.set("publisher", derefOr(p.PublisherID), derefOr(next))
			p.PublisherID = next
		}
		responsibleChanged := false
		if patch.ResponsibleID != nil {
			next := normalizeRef(patch.ResponsibleID)
			responsibleChanged = derefOr(p.ResponsibleID) != derefOr(next)
			changes.set("verantwoordelijke", derefOr(p.ResponsibleID), derefOr(next))
			p.ResponsibleID = next
		}
		if patch.DrafterID != nil {
			next := normalizeRef(patch.DrafterID)
			changes.set("opsteller", derefOr(p.DrafterID), derefOr(next))
			p.DrafterID = next
		}

		categoriesChanged := false
		if patch.CategoryIDs != nil {
			next := dedupe(*patch.CategoryIDs)
			// Без категорий срок хранения опубликованной публикации не определён.
			if len(next) == 0 && p.Status != status.Concept {
				return fmt.Errorf("%w: у опубликованной публикации должна быть хотя бы одна информационная категория", ErrValidation)
			}
			categoriesChanged = !sameSet(p.CategoryIDs, next)
			if categoriesChanged {
				changes.set("informatieCategorieen", p.CategoryIDs, next)
			}
			p.CategoryIDs = next
		}
		if patch.TopicIDs != nil {
			next := dedupe(*patch.TopicIDs)
			if !sameSet(p.TopicIDs, next) {
				changes.set("onderwerpen", p.TopicIDs, next)
			}
			p.TopicIDs = next
		}
		if patch.ValidFrom != nil {
			changes.set("datumBeginGeldigheid", formatDate(p.ValidFrom), formatDate(patch.ValidFrom))
			p.ValidFrom = patch.ValidFrom
		}
		if patch.ValidUntil != nil {
			changes.set("datumEindeGeldigheid", formatDate(p.ValidUntil), formatDate(patch.ValidUntil))
			p.ValidUntil = patch.ValidUntil
		}

		if len(changes) == 0 {
			return nil
		}
		if err := validatePublicationRefs(ctx, r, p); err != nil {
			return err
		}
		if categoriesChanged {
			if err := s.retention.apply(ctx, p, triggerLinks, changes); err != nil {
				return err
			}
		}

		now := s.now()
		p.LastModifiedAt = now
		if err := r.Publications.Update(ctx, p); err != nil {
			return mapRepoErr(err, "обновление публикации")
		}

		if responsibleChanged {
			if err := regenerateHandlings(ctx, r, p); err != nil {
				return err
			}
		}

		res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(p.ID), model.AuditUpdate, changes, now)
		if err != nil {
			return err
		}

		if p.Status != status.Published {
			return nil
		}
		if _, err := enqueue(ctx, r, publicationRef(p.ID), model.IndexUpsert, false); err != nil {
			return err
		}
		enqueued = true
		if publisherChanged {
			// Издатель входит в проекцию документа.
			docs, err := r.Documents.ListByPublication(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("документы публикации: %w", err)
			}
			for _, d := range docs {
				if d.Status != status.Published {
					continue
				}
				if _, err := enqueue(ctx, r, documentRef(d.ID), model.IndexUpsert, false); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if enqueued {
		s.notify()
	}
	return res, nil
}

// regenerateHandlings перезаписывает организацию в записях обработки
// всех документов публикации.
func regenerateHandlings(ctx context.Context, r *repository.Repositories, p *model.Publication) error {
	docs, err := r.Documents.ListByPublicationForUpdate(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("документы публикации: %w", err)
	}
	for _, d := range docs {
		h, err := r.Documents.GetHandling(ctx, d.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			h = &model.DocumentHandling{DocumentID: d.ID, Kind: model.HandlingKindReceipt, OccurredAt: d.RegisteredAt}
		case err != nil:
			return fmt.Errorf("запись обработки документа %s: %w", d.ID, err)
		}
		h.OrganisationID = p.ResponsibleID
		if err := r.Documents.UpsertHandling(ctx, h); err != nil {
			return fmt.Errorf("запись обработки документа %s: %w", d.ID, err)
		}
	}
	return nil
}

// UpdateDocument применяет частичное изменение метаданных документа.
func (s *LifecycleService) UpdateDocument(ctx context.Context, actor model.Actor, id string, patch DocumentPatch) (*DocumentResult, error) {
	res := &DocumentResult{}
	enqueued := false

	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		p, d, err := lockDocument(ctx, r, id)
		if err != nil {
			return err
		}
		res.Document = d
		if d.Status == status.Revoked {
			return fmt.Errorf("%w: отозванный документ не изменяется", ErrConflict)
		}

		changes := changeSet{}
		setString := func(field string, dst *string, v *string) {
			if v == nil {
				return
			}
			changes.set(field, *dst, *v)
			*dst = *v
		}
		if patch.OfficialTitle != nil && strings.TrimSpace(*patch.OfficialTitle) == "" {
			return fmt.Errorf("%w: officialTitle не может быть пустым", ErrValidation)
		}
		setString("identifier", &d.Identifier, patch.Identifier)
		setString("officialTitle", &d.OfficialTitle, patch.OfficialTitle)
		setString("shortTitle", &d.ShortTitle, patch.ShortTitle)
		setString("description", &d.Description, patch.Description)
		setString("fileFormat", &d.FileFormat, patch.FileFormat)
		setString("fileName", &d.FileName, patch.FileName)
		setString("sourceUrl", &d.SourceURL, patch.SourceURL)
		if patch.CreationDate != nil {
			changes.set("creationDate", formatDate(&d.CreationDate), formatDate(patch.CreationDate))
			d.CreationDate = *patch.CreationDate
		}
		if patch.ReceivedDate != nil {
			changes.set("receivedDate", formatDate(d.ReceivedDate), formatDate(patch.ReceivedDate))
			d.ReceivedDate = patch.ReceivedDate
		}
		if patch.SignedDate != nil {
			changes.set("signedDate", formatDate(d.SignedDate), formatDate(patch.SignedDate))
			d.SignedDate = patch.SignedDate
		}
		if len(changes) == 0 {
			return nil
		}

		now := s.now()
		d.LastModifiedAt = now
		if err := r.Documents.Update(ctx, d); err != nil {
			return mapRepoErr(err, "обновление документа")
		}
		res.AuditID, err = appendAudit(ctx, r, actor, documentRef(d.ID), model.AuditUpdate, changes, now)
		if err != nil {
			return err
		}
		if status.Visible(d.Status, p.Status) {
			if _, err := enqueue(ctx, r, documentRef(d.ID), model.IndexUpsert, false); err != nil {
				return err
			}
			enqueued = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if enqueued {
		s.notify()
	}
	return res, nil
}

// --- Смена статуса ---

// SetStatus переводит сущность в новый статус с каскадами и задачами outbox.
func (s *LifecycleService) SetStatus(ctx context.Context, actor model.Actor, ref model.EntityRef, to status.Status) (*StatusResult, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, to)
	}

	res := &StatusResult{Ref: ref, To: to}
	var err error
	switch ref.Type {
	case model.EntityPublication:
		err = s.store.InTx(ctx, func(r *repository.Repositories) error {
			return s.setPublicationStatus(ctx, r, actor, ref.ID, to, res)
		})
	case model.EntityDocument:
		err = s.store.InTx(ctx, func(r *repository.Repositories) error {
			return s.setDocumentStatus(ctx, r, actor, ref.ID, to, res)
		})
	case model.EntityTopic:
		err = s.store.InTx(ctx, func(r *repository.Repositories) error {
			return s.setTopicStatus(ctx, r, actor, ref.ID, to, res)
		})
	default:
		return nil, fmt.Errorf("%w: неизвестный тип сущности %q", ErrValidation, ref.Type)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Статус изменён",
		slog.String("entity_type", string(ref.Type)),
		slog.String("entity_id", ref.ID),
		slog.String("from", string(res.From)),
		slog.String("to", string(res.To)),
		slog.Int("cascaded", len(res.Cascaded)),
		slog.Int("tasks", len(res.TaskIDs)),
	)
	if len(res.TaskIDs) > 0 {
		s.notify()
	}
	return res, nil
}

func (s *LifecycleService) setPublicationStatus(
	ctx context.Context, r *repository.Repositories, actor model.Actor,
	id string, to status.Status, res *StatusResult,
) error {
	p, err := r.Publications.GetForUpdate(ctx, id)
	if err != nil {
		return mapRepoErr(err, "публикация "+id)
	}
	res.From = p.Status
	if err := status.Transition(p.Status, to); err != nil {
		return transitionErr(err)
	}

	docs, err := r.Documents.ListByPublicationForUpdate(ctx, id)
	if err != nil {
		return fmt.Errorf("блокировка документов публикации: %w", err)
	}

	now := s.now()
	from := p.Status
	changes := changeSet{}
	changes.set("status", string(from), string(to))
	p.Status = to
	p.LastModifiedAt = now

	switch to {
	case status.Published:
		p.PublishedAt = &now
		if err := s.retention.apply(ctx, p, triggerPublish, changes); err != nil {
			return err
		}
	case status.Revoked:
		p.RevokedAt = &now
	}
	if err := r.Publications.Update(ctx, p); err != nil {
		return mapRepoErr(err, "обновление публикации")
	}
	res.Publication = p
	res.AuditID, err = appendAudit(ctx, r, actor, publicationRef(id), model.AuditStatusChange, changes, now)
	if err != nil {
		return err
	}

	// Каскад на документы.
	var cascadeFrom status.Status
	switch to {
	case status.Published:
		cascadeFrom = status.Concept
	case status.Revoked:
		cascadeFrom = status.Published
	}
	for _, d := range docs {
		if d.Status != cascadeFrom {
			continue
		}
		// Публикуются только документы с загруженным файлом.
		if to == status.Published && !d.Upload.Complete {
			continue
		}
		d.Status = to
		d.LastModifiedAt = now
		if to == status.Published {
			d.PublishedAt = &now
		} else {
			d.RevokedAt = &now
		}
		if err := r.Documents.Update(ctx, d); err != nil {
			return mapRepoErr(err, "каскадное обновление документа "+d.ID)
		}
		dc := changeSet{}
		dc.set("status", string(cascadeFrom), string(to))
		if _, err := appendAudit(ctx, r, actor, documentRef(d.ID), model.AuditCascade, dc, now); err != nil {
			return err
		}
		res.Cascaded = append(res.Cascaded, d.ID)
	}

	// Outbox.
	add := func(ref model.EntityRef, op model.IndexOperation) error {
		taskID, err := enqueue(ctx, r, ref, op, false)
		if err != nil {
			return err
		}
		res.TaskIDs = append(res.TaskIDs, taskID)
		return nil
	}
	switch to {
	case status.Published:
		if err := add(publicationRef(id), model.IndexUpsert); err != nil {
			return err
		}
		// Все опубликованные документы становятся видимыми вместе с публикацией.
		for _, d := range docs {
			if d.Status == status.Published {
				if err := add(documentRef(d.ID), model.IndexUpsert); err != nil {
					return err
				}
			}
		}
	case status.Revoked:
		if from != status.Published {
			// Документы концепта в индексе не были.
			return nil
		}
		if err := add(publicationRef(id), model.IndexRemove); err != nil {
			return err
		}
		for _, docID := range res.Cascaded {
			if err := add(documentRef(docID), model.IndexRemove); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *LifecycleService) setDocumentStatus(
	ctx context.Context, r *repository.Repositories, actor model.Actor,
	id string, to status.Status, res *StatusResult,
) error {
	p, d, err := lockDocument(ctx, r, id)
	if err != nil {
		return err
	}
	res.From = d.Status
	if err := status.Transition(d.Status, to); err != nil {
		return transitionErr(err)
	}
	if to == status.Published {
		if p.Status == status.Revoked {
			return fmt.Errorf("%w: публикация %s отозвана", ErrInvalidTransition, p.ID)
		}
		if !d.Upload.Complete {
			return fmt.Errorf("%w: документ %s", ErrUploadIncomplete, d.ID)
		}
	}

	now := s.now()
	from := d.Status
	d.Status = to
	d.LastModifiedAt = now
	if to == status.Published {
		d.PublishedAt = &now
	} else {
		d.RevokedAt = &now
	}
	if err := r.Documents.Update(ctx, d); err != nil {
		return mapRepoErr(err, "обновление документа")
	}
	res.Document = d

	changes := changeSet{}
	changes.set("status", string(from), string(to))
	res.AuditID, err = appendAudit(ctx, r, actor, documentRef(id), model.AuditStatusChange, changes, now)
	if err != nil {
		return err
	}

	var op model.IndexOperation
	switch {
	case to == status.Published && p.Status == status.Published:
		op = model.IndexUpsert
	case to == status.Revoked && status.Visible(from, p.Status):
		op = model.IndexRemove
	default:
		// Документ не был виден: концепт публикации или concept → ingetrokken.
		return nil
	}
	taskID, err := enqueue(ctx, r, documentRef(id), op, false)
	if err != nil {
		return err
	}
	res.TaskIDs = append(res.TaskIDs, taskID)
	return nil
}

func (s *LifecycleService) setTopicStatus(
	ctx context.Context, r *repository.Repositories, actor model.Actor,
	id string, to status.Status, res *StatusResult,
) error {
	t, err := r.Topics.GetForUpdate(ctx, id)
	if err != nil {
		return mapRepoErr(err, "тема "+id)
	}
	res.From = t.Status
	if err := status.Transition(t.Status, to); err != nil {
		return transitionErr(err)
	}

	now := s.now()
	from := t.Status
	t.Status = to
	t.LastModifiedAt = now
	if to == status.Published {
		t.PublishedAt = &now
	} else {
		t.RevokedAt = &now
	}
	if err := r.Topics.Update(ctx, t); err != nil {
		return mapRepoErr(err, "обновление темы")
	}
	res.Topic = t

	changes := changeSet{}
	changes.set("status", string(from), string(to))
	res.AuditID, err = appendAudit(ctx, r, actor, topicRef(id), model.AuditStatusChange, changes, now)
	if err != nil {
		return err
	}

	var op model.IndexOperation
	switch {
	case to == status.Published:
		op = model.IndexUpsert
	case from == status.Published:
		op = model.IndexRemove
	default:
		return nil
	}
	taskID, err := enqueue(ctx, r, topicRef(id), op, false)
	if err != nil {
		return err
	}
	res.TaskIDs = append(res.TaskIDs, taskID)
	return nil
}

// --- Удаление ---

// DeleteDocument удаляет документ: строку, задачу удаления из индекса
// и документ во внешнем хранилище (после фиксации транзакции).
func (s *LifecycleService) DeleteDocument(ctx context.Context, actor model.Actor, id string) (int64, error) {
	var (
		auditID int64
		removed *model.Document
	)
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		_, d, err := lockDocument(ctx, r, id)
		if err != nil {
			return err
		}
		if err := r.Documents.Delete(ctx, id); err != nil {
			return mapRepoErr(err, "удаление документа")
		}
		removed = d

		now := s.now()
		changes := changeSet{}
		changes.set("status", string(d.Status), nil)
		auditID, err = appendAudit(ctx, r, actor, documentRef(id), model.AuditDelete, changes, now)
		if err != nil {
			return err
		}
		_, err = enqueue(ctx, r, documentRef(id), model.IndexRemove, true)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.notify()

	if removed.Upload.RemoteID != "" && s.docs != nil && removed.Upload.Service == s.docs.Name() {
		if err := s.docs.Delete(ctx, removed.Upload.RemoteID); err != nil {
			s.logger.Warn("Не удалось удалить документ во внешнем хранилище",
				slog.String("document_id", id),
				slog.String("remote_id", removed.Upload.RemoteID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Документ удалён", slog.String("document_id", id))
	return auditID, nil
}

// --- Вспомогательные функции ---

// lockDocument блокирует публикацию документа, затем сам документ.
func lockDocument(ctx context.Context, r *repository.Repositories, id string) (*model.Publication, *model.Document, error) {
	head, err := r.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapRepoErr(err, "документ "+id)
	}
	p, err := r.Publications.GetForUpdate(ctx, head.PublicationID)
	if err != nil {
		return nil, nil, mapRepoErr(err, "публикация "+head.PublicationID)
	}
	d, err := r.Documents.GetForUpdate(ctx, id)
	if err != nil {
		return nil, nil, mapRepoErr(err, "документ "+id)
	}
	return p, d, nil
}

// enqueue ставит задачу синхронизации индекса в текущей транзакции.
func enqueue(ctx context.Context, r *repository.Repositories, ref model.EntityRef, op model.IndexOperation, force bool) (int64, error) {
	id, err := r.Tasks.Enqueue(ctx, ref, op, force)
	if err != nil {
		return 0, fmt.Errorf("постановка задачи индекса %s %s: %w", ref.Type, ref.ID, err)
	}
	return id, nil
}

// resolveOwner находит или создаёт владельца. Без явного владельца — инициатор.
func resolveOwner(ctx context.Context, r *repository.Repositories, actor model.Actor, in *OwnerInput) (model.Owner, error) {
	identifier, display := actor.ID, actor.DisplayName
	if in != nil {
		identifier, display = in.Identifier, in.DisplayName
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return model.Owner{}, fmt.Errorf("%w: не задан владелец (идентификатор инициатора)", ErrValidation)
	}
	if display == "" {
		display = identifier
	}
	owner, err := r.Owners.Resolve(ctx, identifier, display)
	if err != nil {
		return model.Owner{}, fmt.Errorf("определение владельца: %w", err)
	}
	return owner, nil
}

// validatePublicationRefs проверяет существование связанных категорий,
// тем и организаций.
func validatePublicationRefs(ctx context.Context, r *repository.Repositories, p *model.Publication) error {
	if len(p.CategoryIDs) > 0 {
		cats, err := r.Categories.GetByIDs(ctx, p.CategoryIDs)
		if err != nil {
			return fmt.Errorf("проверка категорий: %w", err)
		}
		if len(cats) != len(p.CategoryIDs) {
			return fmt.Errorf("%w: неизвестная информационная категория", ErrValidation)
		}
	}
	if len(p.TopicIDs) > 0 {
		topics, err := r.Topics.GetByIDs(ctx, p.TopicIDs)
		if err != nil {
			return fmt.Errorf("проверка тем: %w", err)
		}
		if len(topics) != len(p.TopicIDs) {
			return fmt.Errorf("%w: неизвестная тема", ErrValidation)
		}
	}
	for _, org := range []*string{p.PublisherID, p.ResponsibleID, p.DrafterID} {
		if org == nil {
			continue
		}
		if _, err := r.Organisations.GetByID(ctx, *org); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: неизвестная организация %s", ErrValidation, *org)
			}
			return fmt.Errorf("проверка организации: %w", err)
		}
	}
	return nil
}

// normalizeRef — пустая строка означает отсутствие ссылки.
func normalizeRef(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	s := *v
	return &s
}

func derefOr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// dedupe убирает повторы, сохраняя порядок.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	m := make(map[string]struct{}, len(a))
	for _, v := range a {
		m[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := m[v]; !ok {
			return false
		}
	}
	return true
}
