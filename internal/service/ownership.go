// ownership.go — передача владения публикациями, документами и темами.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// OwnerChange — итог передачи владения одной сущности.
type OwnerChange struct {
	Ref     model.EntityRef `json:"entity"`
	AuditID int64           `json:"audit_id"`
}

// OwnershipService — смена владельца.
type OwnershipService struct {
	store  Store
	now    clock
	logger *slog.Logger
}

// NewOwnershipService создаёт сервис передачи владения.
func NewOwnershipService(store Store, logger *slog.Logger) *OwnershipService {
	return &OwnershipService{
		store:  store,
		now:    utcNow,
		logger: logger.With(slog.String("component", "ownership")),
	}
}

// ChangeOwner назначает владельца всем перечисленным сущностям в одной
// транзакции. Отсутствующая сущность откатывает всю пачку.
// Владелец не входит в проекцию индекса, задачи синхронизации не ставятся.
func (s *OwnershipService) ChangeOwner(ctx context.Context, actor model.Actor, refs []model.EntityRef, owner OwnerInput) ([]OwnerChange, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: пустой список сущностей", ErrValidation)
	}
	if owner.Identifier == "" {
		return nil, fmt.Errorf("%w: не задан идентификатор владельца", ErrValidation)
	}
	for _, ref := range refs {
		if !ref.Type.Valid() || ref.ID == "" {
			return nil, fmt.Errorf("%w: недопустимая ссылка %s/%s", ErrValidation, ref.Type, ref.ID)
		}
	}

	var out []OwnerChange
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		out = out[:0]
		resolved, err := resolveOwner(ctx, r, actor, &owner)
		if err != nil {
			return err
		}

		ordered := lockOrder(refs)
		pubs, err := lockPublications(ctx, r, ordered)
		if err != nil {
			return err
		}

		now := s.now()
		for _, ref := range ordered {
			before, err := s.assign(ctx, r, ref, pubs, resolved, now)
			if err != nil {
				return err
			}
			changes := changeSet{}
			changes.set("owner", ownerLabel(before), ownerLabel(resolved))
			auditID, err := appendAudit(ctx, r, actor, ref, model.AuditOwnerChange, changes, now)
			if err != nil {
				return err
			}
			out = append(out, OwnerChange{Ref: ref, AuditID: auditID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Владелец изменён",
		slog.String("owner", owner.Identifier),
		slog.Int("entities", len(refs)),
	)
	return out, nil
}

// assign блокирует сущность и меняет владельца. Возвращает прежнего.
// Публикации (и родители документов) уже заблокированы lockPublications.
func (s *OwnershipService) assign(
	ctx context.Context, r *repository.Repositories, ref model.EntityRef,
	pubs map[string]*model.Publication, owner model.Owner, now time.Time,
) (model.Owner, error) {
	switch ref.Type {
	case model.EntityPublication:
		p := pubs[ref.ID]
		before := p.Owner
		p.Owner = owner
		p.LastModifiedAt = now
		return before, mapRepoErr(r.Publications.Update(ctx, p), "обновление публикации")
	case model.EntityDocument:
		d, err := r.Documents.GetForUpdate(ctx, ref.ID)
		if err != nil {
			return model.Owner{}, mapRepoErr(err, "документ "+ref.ID)
		}
		before := d.Owner
		d.Owner = owner
		d.LastModifiedAt = now
		return before, mapRepoErr(r.Documents.Update(ctx, d), "обновление документа")
	default:
		t, err := r.Topics.GetForUpdate(ctx, ref.ID)
		if err != nil {
			return model.Owner{}, mapRepoErr(err, "тема "+ref.ID)
		}
		before := t.Owner
		t.Owner = owner
		t.LastModifiedAt = now
		return before, mapRepoErr(r.Topics.Update(ctx, t), "обновление темы")
	}
}

// lockPublications блокирует явно перечисленные публикации и родителей
// документов одним проходом по возрастанию UUID. Документы блокируются
// после всех публикаций, поэтому две передачи с пересекающимися наборами
// берут блокировки в одном порядке.
func lockPublications(ctx context.Context, r *repository.Repositories, refs []model.EntityRef) (map[string]*model.Publication, error) {
	parents := make(map[string]string)
	for _, ref := range refs {
		if ref.Type != model.EntityDocument {
			continue
		}
		d, err := r.Documents.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, mapRepoErr(err, "документ "+ref.ID)
		}
		parents[ref.ID] = d.PublicationID
	}

	locked := make(map[string]*model.Publication)
	for _, id := range publicationLockOrder(refs, parents) {
		p, err := r.Publications.GetForUpdate(ctx, id)
		if err != nil {
			return nil, mapRepoErr(err, "публикация "+id)
		}
		locked[id] = p
	}
	return locked, nil
}

// publicationLockOrder — UUID публикаций для блокировки, по возрастанию
// и без повторов. parents — публикация каждого документа из refs.
func publicationLockOrder(refs []model.EntityRef, parents map[string]string) []string {
	var ids []string
	for _, ref := range refs {
		switch ref.Type {
		case model.EntityPublication:
			ids = append(ids, ref.ID)
		case model.EntityDocument:
			ids = append(ids, parents[ref.ID])
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// lockOrder — публикации раньше документов, внутри типа — по UUID.
func lockOrder(refs []model.EntityRef) []model.EntityRef {
	rank := map[model.EntityType]int{model.EntityPublication: 0, model.EntityDocument: 1, model.EntityTopic: 2}
	out := slices.Clone(refs)
	slices.SortStableFunc(out, func(a, b model.EntityRef) int {
		if rank[a.Type] != rank[b.Type] {
			return rank[a.Type] - rank[b.Type]
		}
		return strings.Compare(a.ID, b.ID)
	})
	return slices.CompactFunc(out, func(a, b model.EntityRef) bool { return a == b })
}

func ownerLabel(o model.Owner) string {
	if o.DisplayName == "" || o.DisplayName == o.Identifier {
		return o.Identifier
	}
	return o.Identifier + " (" + o.DisplayName + ")"
}
