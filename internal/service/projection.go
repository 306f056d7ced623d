// projection.go — построение индексируемых проекций по текущему состоянию записей.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
	"github.com/bigkaa/woo-publications/internal/searchclient"
)

// syncAction — что сделать с сущностью в индексе.
type syncAction int

const (
	actionSkip syncAction = iota
	actionUpsert
	actionRemove
)

func (a syncAction) String() string {
	switch a {
	case actionUpsert:
		return "upsert"
	case actionRemove:
		return "remove"
	default:
		return "skip"
	}
}

// projection — решение по сущности и тело проекции (для upsert).
type projection struct {
	action syncAction
	body   any
}

// Projector читает сущность и решает, видна ли она в индексе.
type Projector struct {
	store      Store
	categories *CategoryCache
}

// NewProjector создаёт построитель проекций.
func NewProjector(store Store, categories *CategoryCache) *Projector {
	return &Projector{store: store, categories: categories}
}

// Project возвращает проекцию сущности:
// видимая — upsert; отозванная или удалённая — remove; концепт — skip.
func (p *Projector) Project(ctx context.Context, ref model.EntityRef) (projection, error) {
	switch ref.Type {
	case model.EntityPublication:
		return p.publication(ctx, ref.ID)
	case model.EntityDocument:
		return p.document(ctx, ref.ID)
	case model.EntityTopic:
		return p.topic(ctx, ref.ID)
	default:
		return projection{}, fmt.Errorf("неизвестный тип сущности %q", ref.Type)
	}
}

func (p *Projector) publication(ctx context.Context, id string) (projection, error) {
	repos := p.store.Repos()
	pub, err := repos.Publications.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return projection{action: actionRemove}, nil
	}
	if err != nil {
		return projection{}, fmt.Errorf("чтение публикации %s: %w", id, err)
	}
	switch pub.Status {
	case status.Revoked:
		return projection{action: actionRemove}, nil
	case status.Concept:
		return projection{action: actionSkip}, nil
	}

	publisher, err := p.organisation(ctx, pub.PublisherID)
	if err != nil {
		return projection{}, err
	}
	cats, err := p.categories.Get(ctx, pub.CategoryIDs)
	if err != nil {
		return projection{}, err
	}
	topics, err := repos.Topics.GetByIDs(ctx, pub.TopicIDs)
	if err != nil {
		return projection{}, fmt.Errorf("чтение тем публикации %s: %w", id, err)
	}

	body := searchclient.PublicationBody{
		UUID:                  pub.ID,
		Publisher:             publisher,
		InformatieCategorieen: make([]searchclient.Category, 0, len(cats)),
		Onderwerpen:           make([]searchclient.TopicRef, 0, len(topics)),
		OfficieleTitel:        pub.OfficialTitle,
		VerkorteTitel:         pub.ShortTitle,
		Omschrijving:          pub.Description,
		Registratiedatum:      pub.RegisteredAt,
		LaatstGewijzigdDatum:  pub.LastModifiedAt,
	}
	for _, c := range cats {
		body.InformatieCategorieen = append(body.InformatieCategorieen, searchclient.Category{UUID: c.ID, Naam: c.Name})
	}
	for _, t := range topics {
		body.Onderwerpen = append(body.Onderwerpen, searchclient.TopicRef{UUID: t.ID, OfficieleTitel: t.OfficialTitle})
	}
	return projection{action: actionUpsert, body: body}, nil
}

func (p *Projector) document(ctx context.Context, id string) (projection, error) {
	repos := p.store.Repos()
	doc, err := repos.Documents.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return projection{action: actionRemove}, nil
	}
	if err != nil {
		return projection{}, fmt.Errorf("чтение документа %s: %w", id, err)
	}
	pub, err := repos.Publications.GetByID(ctx, doc.PublicationID)
	if err != nil {
		return projection{}, fmt.Errorf("чтение публикации документа %s: %w", id, err)
	}

	if !status.Visible(doc.Status, pub.Status) {
		if doc.Status == status.Revoked || pub.Status == status.Revoked {
			return projection{action: actionRemove}, nil
		}
		return projection{action: actionSkip}, nil
	}

	publisher, err := p.organisation(ctx, pub.PublisherID)
	if err != nil {
		return projection{}, err
	}
	return projection{action: actionUpsert, body: searchclient.DocumentBody{
		UUID:                 doc.ID,
		Publicatie:           pub.ID,
		Publisher:            publisher,
		Identifier:           doc.Identifier,
		OfficieleTitel:       doc.OfficialTitle,
		VerkorteTitel:        doc.ShortTitle,
		Omschrijving:         doc.Description,
		Creatiedatum:         doc.CreationDate.Format(time.DateOnly),
		Registratiedatum:     doc.RegisteredAt,
		LaatstGewijzigdDatum: doc.LastModifiedAt,
	}}, nil
}

func (p *Projector) topic(ctx context.Context, id string) (projection, error) {
	t, err := p.store.Repos().Topics.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return projection{action: actionRemove}, nil
	}
	if err != nil {
		return projection{}, fmt.Errorf("чтение темы %s: %w", id, err)
	}
	switch t.Status {
	case status.Revoked:
		return projection{action: actionRemove}, nil
	case status.Concept:
		return projection{action: actionSkip}, nil
	}
	return projection{action: actionUpsert, body: searchclient.TopicBody{
		UUID:                 t.ID,
		OfficieleTitel:       t.OfficialTitle,
		Omschrijving:         t.Description,
		Registratiedatum:     t.RegisteredAt,
		LaatstGewijzigdDatum: t.LastModifiedAt,
	}}, nil
}

// organisation — ссылка на организацию; удалённая из справочника опускается.
func (p *Projector) organisation(ctx context.Context, id *string) (*searchclient.Organisation, error) {
	if id == nil {
		return nil, nil
	}
	org, err := p.store.Repos().Organisations.GetByID(ctx, *id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение организации %s: %w", *id, err)
	}
	return &searchclient.Organisation{UUID: org.ID, Naam: org.Name}, nil
}
