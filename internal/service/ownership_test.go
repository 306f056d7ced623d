package service

import (
	"errors"
	"slices"
	"testing"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
)

func TestChangeOwner(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Published)
	d := f.document(p.ID, false)
	topic, err := f.lifecycle.RegisterTopic(f.ctx, testActor, TopicInput{OfficialTitle: "Energie"})
	if err != nil {
		t.Fatalf("RegisterTopic: %v", err)
	}
	pending := f.store.PendingCount()

	refs := []model.EntityRef{topicRef(topic.Topic.ID), documentRef(d.ID), publicationRef(p.ID), publicationRef(p.ID)}
	changes, err := f.ownership.ChangeOwner(f.ctx, testActor, refs, OwnerInput{Identifier: "jansen", DisplayName: "J. Jansen"})
	if err != nil {
		t.Fatalf("ChangeOwner: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("изменений: %d, ожидалось 3 (повторы схлопываются)", len(changes))
	}
	// Порядок блокировок: публикация, документ, тема.
	wantOrder := []model.EntityType{model.EntityPublication, model.EntityDocument, model.EntityTopic}
	for i, c := range changes {
		if c.Ref.Type != wantOrder[i] || c.AuditID == 0 {
			t.Errorf("изменение %d: %+v", i, c)
		}
	}

	owner := f.getPublication(p.ID).Owner
	if owner.Identifier != "jansen" || owner.DisplayName != "J. Jansen" {
		t.Errorf("владелец публикации: %+v", owner)
	}
	if f.getDocument(d.ID).Owner.ID != owner.ID {
		t.Error("документ должен получить того же владельца")
	}
	gotTopic, _ := f.store.Repos().Topics.GetByID(f.ctx, topic.Topic.ID)
	if gotTopic.Owner.ID != owner.ID {
		t.Error("тема должна получить того же владельца")
	}
	if f.store.PendingCount() != pending {
		t.Error("смена владельца не ставит задачи индекса")
	}

	entries, err := NewAuditService(f.store, discardLogger()).History(f.ctx, p.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Action != model.AuditOwnerChange {
		t.Fatalf("последняя запись аудита: %s", last.Action)
	}
	if ch := last.Changes["owner"]; ch.Before != testActor.ID+" ("+testActor.DisplayName+")" || ch.After != "jansen (J. Jansen)" {
		t.Errorf("изменение владельца в аудите: %+v", ch)
	}
}

// TestChangeOwnerRollsBackOnMissingEntity — отсутствующая сущность
// откатывает смену владельца для всей пачки.
func TestChangeOwnerRollsBackOnMissingEntity(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	before := f.getPublication(p.ID).Owner

	refs := []model.EntityRef{
		publicationRef(p.ID),
		publicationRef("ffffffff-ffff-ffff-ffff-ffffffffffff"),
	}
	_, err := f.ownership.ChangeOwner(f.ctx, testActor, refs, OwnerInput{Identifier: "jansen"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
	if got := f.getPublication(p.ID).Owner; got != before {
		t.Errorf("владелец изменился несмотря на откат: %+v", got)
	}
	if got := f.store.AuditActions(p.ID); got != "create" {
		t.Errorf("аудит после отката: %s", got)
	}
}

// TestPublicationLockOrder — родитель документа блокируется вместе с явно
// перечисленными публикациями, в порядке UUID, до любого документа.
func TestPublicationLockOrder(t *testing.T) {
	pub := func(id string) model.EntityRef { return model.EntityRef{Type: model.EntityPublication, ID: id} }
	doc := func(id string) model.EntityRef { return model.EntityRef{Type: model.EntityDocument, ID: id} }
	topic := model.EntityRef{Type: model.EntityTopic, ID: "t1"}

	tests := []struct {
		name    string
		refs    []model.EntityRef
		parents map[string]string
		want    []string
	}{
		{
			name:    "родитель документа меньше явной публикации",
			refs:    []model.EntityRef{pub("bbbb"), doc("d1")},
			parents: map[string]string{"d1": "aaaa"},
			want:    []string{"aaaa", "bbbb"},
		},
		{
			name:    "родитель документа больше явной публикации",
			refs:    []model.EntityRef{doc("d1"), pub("aaaa")},
			parents: map[string]string{"d1": "cccc"},
			want:    []string{"aaaa", "cccc"},
		},
		{
			name:    "общий родитель без повторов",
			refs:    []model.EntityRef{doc("d1"), doc("d2"), pub("aaaa"), topic},
			parents: map[string]string{"d1": "aaaa", "d2": "aaaa"},
			want:    []string{"aaaa"},
		},
		{
			name: "только темы",
			refs: []model.EntityRef{topic},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := publicationLockOrder(tt.refs, tt.parents)
			if !slices.Equal(got, tt.want) {
				t.Errorf("publicationLockOrder() = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

// TestChangeOwnerDocumentWithParent — документ и его публикация в одной
// пачке: родитель блокируется один раз, оба получают владельца.
func TestChangeOwnerDocumentWithParent(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	d := f.document(p.ID, false)
	other := f.publication(status.Concept)

	refs := []model.EntityRef{documentRef(d.ID), publicationRef(other.ID), publicationRef(p.ID)}
	out, err := f.ownership.ChangeOwner(f.ctx, testActor, refs, OwnerInput{Identifier: "team-woo"})
	if err != nil {
		t.Fatalf("ChangeOwner: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("изменено %d сущностей, ожидалось 3", len(out))
	}
	if got := f.getDocument(d.ID).Owner.Identifier; got != "team-woo" {
		t.Errorf("владелец документа: %s", got)
	}
	for _, id := range []string{p.ID, other.ID} {
		if got := f.getPublication(id).Owner.Identifier; got != "team-woo" {
			t.Errorf("владелец публикации %s: %s", id, got)
		}
	}
}

func TestChangeOwnerValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		refs  []model.EntityRef
		owner OwnerInput
	}{
		{name: "пустой список", owner: OwnerInput{Identifier: "x"}},
		{name: "пустой владелец", refs: []model.EntityRef{publicationRef("a")}},
		{name: "неизвестный тип", refs: []model.EntityRef{{Type: "zaak", ID: "a"}}, owner: OwnerInput{Identifier: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ownership.ChangeOwner(f.ctx, testActor, tt.refs, tt.owner); !errors.Is(err, ErrValidation) {
				t.Fatalf("ожидалась ErrValidation, получено %v", err)
			}
		})
	}
}

func TestBulkSetStatus(t *testing.T) {
	f := newFixture(t)
	concept := f.publication(status.Concept)
	revoked := f.publication(status.Concept)
	f.setStatus(publicationRef(revoked.ID), status.Revoked)
	incomplete := f.document(f.publication(status.Published).ID, false)

	refs := []model.EntityRef{
		publicationRef(concept.ID),
		publicationRef(revoked.ID),
		documentRef(incomplete.ID),
		publicationRef("missing"),
	}
	results, err := f.bulk.BulkSetStatus(f.ctx, testActor, refs, status.Published)
	if err != nil {
		t.Fatalf("BulkSetStatus: %v", err)
	}

	wantErr := []error{nil, ErrInvalidTransition, ErrUploadIncomplete, ErrNotFound}
	for i, r := range results {
		if r.Ref != refs[i] {
			t.Errorf("результат %d: ссылка %+v", i, r.Ref)
		}
		if wantErr[i] == nil {
			if r.Err != nil || r.Result == nil || r.Result.To != status.Published {
				t.Errorf("результат %d: %+v", i, r)
			}
			continue
		}
		if !errors.Is(r.Err, wantErr[i]) {
			t.Errorf("результат %d: ожидалась %v, получено %v", i, wantErr[i], r.Err)
		}
	}
	if got := f.getPublication(concept.ID).Status; got != status.Published {
		t.Errorf("успешный элемент не применён: %s", got)
	}
}

func TestBulkValidation(t *testing.T) {
	f := newFixture(t)
	tooMany := make([]model.EntityRef, maxBulkItems+1)
	for i := range tooMany {
		tooMany[i] = publicationRef("p")
	}
	if _, err := f.bulk.BulkReindex(f.ctx, tooMany); !errors.Is(err, ErrValidation) {
		t.Errorf("слишком много сущностей: %v", err)
	}
	if _, err := f.bulk.BulkRemoveFromIndex(f.ctx, nil, true); !errors.Is(err, ErrValidation) {
		t.Errorf("пустой список: %v", err)
	}
	if _, err := f.bulk.BulkSetStatus(f.ctx, testActor, []model.EntityRef{publicationRef("p")}, "archived"); !errors.Is(err, ErrValidation) {
		t.Errorf("недопустимый статус: %v", err)
	}
}
