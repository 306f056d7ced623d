package service

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
)

func opsEqual(got []model.IndexOperation, want ...model.IndexOperation) bool {
	return slices.Equal(got, want)
}

// TestSetStatusTransitions проверяет таблицу переходов для публикации и темы.
func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []status.Status
		to      status.Status
		wantErr error
	}{
		{name: "concept → gepubliceerd", to: status.Published},
		{name: "concept → ingetrokken", to: status.Revoked},
		{name: "gepubliceerd → ingetrokken", path: []status.Status{status.Published}, to: status.Revoked},
		{name: "gepubliceerd → concept", path: []status.Status{status.Published}, to: status.Concept, wantErr: ErrInvalidTransition},
		{name: "ingetrokken → gepubliceerd", path: []status.Status{status.Revoked}, to: status.Published, wantErr: ErrInvalidTransition},
		{name: "ingetrokken → concept", path: []status.Status{status.Revoked}, to: status.Concept, wantErr: ErrInvalidTransition},
		{name: "недопустимый статус", to: status.Status("archived"), wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, kind := range []model.EntityType{model.EntityPublication, model.EntityTopic} {
				var ref model.EntityRef
				if kind == model.EntityPublication {
					ref = publicationRef(f.publication(status.Concept).ID)
				} else {
					res, err := f.lifecycle.RegisterTopic(f.ctx, testActor, TopicInput{OfficialTitle: "Omgevingsvisie", Status: status.Concept})
					if err != nil {
						t.Fatalf("регистрация темы: %v", err)
					}
					ref = topicRef(res.Topic.ID)
				}
				for _, st := range tt.path {
					f.setStatus(ref, st)
				}

				res, err := f.lifecycle.SetStatus(f.ctx, testActor, ref, tt.to)
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("%s: ожидалась ошибка %v, получено %v", kind, tt.wantErr, err)
					}
					continue
				}
				if err != nil {
					t.Fatalf("%s: неожиданная ошибка: %v", kind, err)
				}
				if res.To != tt.to || res.AuditID == 0 {
					t.Errorf("%s: результат %+v", kind, res)
				}
			}
		})
	}
}

// TestPublishCascadesOnlyCompleteDocuments — публикация переводит в
// gepubliceerd только концепт-документы с загруженным файлом.
func TestPublishCascadesOnlyCompleteDocuments(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	ready := f.document(p.ID, true)
	pending := f.document(p.ID, false)

	res := f.setStatus(publicationRef(p.ID), status.Published)

	if !slices.Equal(res.Cascaded, []string{ready.ID}) {
		t.Fatalf("каскад: ожидался [%s], получено %v", ready.ID, res.Cascaded)
	}
	if got := f.getDocument(ready.ID).Status; got != status.Published {
		t.Errorf("документ с файлом: статус %s", got)
	}
	if got := f.getDocument(pending.ID).Status; got != status.Concept {
		t.Errorf("документ без файла: статус %s", got)
	}
	if !opsEqual(f.store.TasksFor(model.EntityPublication, p.ID), model.IndexUpsert) {
		t.Errorf("задачи публикации: %v", f.store.TasksFor(model.EntityPublication, p.ID))
	}
	if !opsEqual(f.store.TasksFor(model.EntityDocument, ready.ID), model.IndexUpsert) {
		t.Errorf("задачи документа: %v", f.store.TasksFor(model.EntityDocument, ready.ID))
	}
	if len(f.store.TasksFor(model.EntityDocument, pending.ID)) != 0 {
		t.Error("для документа без файла задач быть не должно")
	}
	if got := f.store.AuditActions(ready.ID); got != "create,cascade_status_change" {
		t.Errorf("аудит документа: %s", got)
	}
}

// TestRevokeCascadesAndRemovesFromIndex — полный сценарий публикации и
// отзыва: после синхронизации в индексе не остаётся ни публикации, ни документа.
func TestRevokeCascadesAndRemovesFromIndex(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	d := f.document(p.ID, true)

	f.setStatus(publicationRef(p.ID), status.Published)
	f.drain()
	if !f.index.has(model.EntityPublication, p.ID) || !f.index.has(model.EntityDocument, d.ID) {
		t.Fatalf("после публикации ожидались записи в индексе: %v", f.index.callLog())
	}

	res := f.setStatus(publicationRef(p.ID), status.Revoked)
	if !slices.Equal(res.Cascaded, []string{d.ID}) {
		t.Fatalf("каскад отзыва: %v", res.Cascaded)
	}
	if len(res.TaskIDs) != 2 {
		t.Fatalf("ожидались 2 задачи remove, получено %d", len(res.TaskIDs))
	}
	if got := f.getDocument(d.ID).Status; got != status.Revoked {
		t.Fatalf("документ: статус %s", got)
	}

	f.drain()
	if f.index.has(model.EntityPublication, p.ID) || f.index.has(model.EntityDocument, d.ID) {
		t.Errorf("после отзыва записи должны исчезнуть из индекса: %v", f.index.callLog())
	}
	if f.store.PendingCount() != 0 {
		t.Errorf("очередь не пуста: %d", f.store.PendingCount())
	}
}

// TestCascadeFailureRollsBack — ошибка каскадного обновления документа
// откатывает смену статуса публикации целиком.
func TestCascadeFailureRollsBack(t *testing.T) {
	for _, to := range []status.Status{status.Published, status.Revoked} {
		t.Run(string(to), func(t *testing.T) {
			f := newFixture(t)
			start := status.Concept
			if to == status.Revoked {
				start = status.Published
			}
			p := f.publication(start)
			d1 := f.document(p.ID, true)
			d2 := f.document(p.ID, true)
			if to == status.Revoked {
				f.setStatus(documentRef(d1.ID), status.Published)
				f.setStatus(documentRef(d2.ID), status.Published)
			}
			f.drain()

			// Документы каскадируются по возрастанию UUID: падает второй.
			first, last := d1.ID, d2.ID
			if last < first {
				first, last = last, first
			}
			wantPub := f.getPublication(p.ID).Status
			wantDoc := f.getDocument(first).Status
			audit := map[string]string{}
			for _, id := range []string{p.ID, first, last} {
				audit[id] = f.store.AuditActions(id)
			}

			injected := errors.New("сбой записи документа")
			f.store.FailDocumentUpdate(last, injected)
			_, err := f.lifecycle.SetStatus(f.ctx, testActor, publicationRef(p.ID), to)
			if !errors.Is(err, injected) {
				t.Fatalf("ожидалась внедрённая ошибка, получено %v", err)
			}
			f.store.FailDocumentUpdate(last, nil)

			if got := f.getPublication(p.ID).Status; got != wantPub {
				t.Errorf("статус публикации: %s, ожидался %s", got, wantPub)
			}
			for _, id := range []string{first, last} {
				if got := f.getDocument(id).Status; got != wantDoc {
					t.Errorf("статус документа %s: %s, ожидался %s", id, got, wantDoc)
				}
			}
			for id, want := range audit {
				if got := f.store.AuditActions(id); got != want {
					t.Errorf("аудит %s: %q, ожидался %q", id, got, want)
				}
			}
			if n := f.store.PendingCount(); n != 0 {
				t.Errorf("в очереди %d задач", n)
			}
		})
	}
}

// TestRevokeConceptEnqueuesNothing — отзыв концепта: в индексе его не было.
func TestRevokeConceptEnqueuesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	d := f.document(p.ID, false)

	res := f.setStatus(documentRef(d.ID), status.Revoked)
	if len(res.TaskIDs) != 0 {
		t.Errorf("документ: задачи %v", res.TaskIDs)
	}
	res = f.setStatus(publicationRef(p.ID), status.Revoked)
	if len(res.TaskIDs) != 0 || len(res.Cascaded) != 0 {
		t.Errorf("публикация: задачи %v, каскад %v", res.TaskIDs, res.Cascaded)
	}
	if f.store.PendingCount() != 0 {
		t.Errorf("очередь должна быть пустой, задач: %d", f.store.PendingCount())
	}
}

// TestRevokeInvisibleDocumentEnqueuesNothing — опубликованный документ в
// концепте публикации в индексе не виден, его отзыв задач не создаёт.
func TestRevokeInvisibleDocumentEnqueuesNothing(t *testing.T) {
	t.Run("отзыв публикации-концепта", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Concept)
		d := f.document(p.ID, true)
		f.setStatus(documentRef(d.ID), status.Published)

		res := f.setStatus(publicationRef(p.ID), status.Revoked)
		if !slices.Equal(res.Cascaded, []string{d.ID}) {
			t.Fatalf("каскад отзыва: %v", res.Cascaded)
		}
		if len(res.TaskIDs) != 0 {
			t.Errorf("ожидалось без задач, получено %v", res.TaskIDs)
		}
		if f.store.PendingCount() != 0 {
			t.Errorf("очередь должна быть пустой, задач: %d", f.store.PendingCount())
		}
	})

	t.Run("отзыв документа в концепте", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Concept)
		d := f.document(p.ID, true)
		f.setStatus(documentRef(d.ID), status.Published)

		res := f.setStatus(documentRef(d.ID), status.Revoked)
		if len(res.TaskIDs) != 0 {
			t.Errorf("ожидалось без задач, получено %v", res.TaskIDs)
		}
		if ops := f.store.TasksFor(model.EntityDocument, d.ID); len(ops) != 0 {
			t.Errorf("задачи документа: %v", ops)
		}
	})
}

func TestPublishDocumentChecks(t *testing.T) {
	t.Run("файл не загружен", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Published)
		d := f.document(p.ID, false)

		_, err := f.lifecycle.SetStatus(f.ctx, testActor, documentRef(d.ID), status.Published)
		if !errors.Is(err, ErrUploadIncomplete) {
			t.Fatalf("ожидалась ErrUploadIncomplete, получено %v", err)
		}
		if got := f.getDocument(d.ID).Status; got != status.Concept {
			t.Errorf("статус не должен измениться: %s", got)
		}
	})

	t.Run("публикация отозвана", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Concept)
		d := f.document(p.ID, true)
		f.setStatus(publicationRef(p.ID), status.Revoked)

		_, err := f.lifecycle.SetStatus(f.ctx, testActor, documentRef(d.ID), status.Published)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("ожидалась ErrInvalidTransition, получено %v", err)
		}
	})

	t.Run("концепт публикации: без задачи индекса", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Concept)
		d := f.document(p.ID, true)

		res := f.setStatus(documentRef(d.ID), status.Published)
		if len(res.TaskIDs) != 0 {
			t.Errorf("документ невидим, задачи не нужны: %v", res.TaskIDs)
		}
	})

	t.Run("опубликованная публикация: upsert", func(t *testing.T) {
		f := newFixture(t)
		p := f.publication(status.Published)
		d := f.document(p.ID, true)

		f.setStatus(documentRef(d.ID), status.Published)
		if !opsEqual(f.store.TasksFor(model.EntityDocument, d.ID), model.IndexUpsert) {
			t.Errorf("задачи: %v", f.store.TasksFor(model.EntityDocument, d.ID))
		}
	})
}

func TestRegisterDocumentOnRevokedPublication(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	f.setStatus(publicationRef(p.ID), status.Revoked)

	_, err := f.lifecycle.RegisterDocument(f.ctx, testActor, p.ID, DocumentInput{OfficialTitle: "Bijlage"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ожидалась ErrInvalidTransition, получено %v", err)
	}
}

func TestRegisterPublicationValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   PublicationInput
	}{
		{name: "пустое название", in: PublicationInput{OfficialTitle: "  "}},
		{name: "начальный статус ingetrokken", in: PublicationInput{OfficialTitle: "x", Status: status.Revoked}},
		{name: "неизвестная категория", in: PublicationInput{OfficialTitle: "x", CategoryIDs: []string{"nope"}}},
		{name: "неизвестная организация", in: PublicationInput{OfficialTitle: "x", PublisherID: ptr("nope")}},
		{name: "пустой владелец", in: PublicationInput{OfficialTitle: "x", Owner: &OwnerInput{Identifier: " "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lifecycle.RegisterPublication(f.ctx, testActor, tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ожидалась ErrValidation, получено %v", err)
			}
		})
	}
	if f.store.PendingCount() != 0 {
		t.Error("отклонённые регистрации не должны ставить задачи")
	}
}

func ptr[T any](v T) *T { return &v }

// TestRegisterPublishedComputesRetention — опубликованная сразу публикация
// получает дату архивного действия, концепт — нет.
func TestRegisterPublishedComputesRetention(t *testing.T) {
	f := newFixture(t)
	cat := f.category("cat-besluit", 1, 10, retention.NominationDispose)

	published := f.publication(status.Published, cat)
	want := time.Date(2036, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := published.Retention.ArchiveActionDate; got == nil || !got.Equal(want) {
		t.Errorf("дата архивного действия: ожидалась %s, получено %v", want.Format(time.DateOnly), got)
	}
	if published.Owner.Identifier != testActor.ID {
		t.Errorf("владелец по умолчанию — инициатор, получено %q", published.Owner.Identifier)
	}

	concept := f.publication(status.Concept, cat)
	if concept.Retention.ArchiveActionDate != nil {
		t.Errorf("концепт не пересчитывается: %v", concept.Retention.ArchiveActionDate)
	}

	// Публикация концепта вычисляет срок от даты публикации.
	f.clock.advance(24 * time.Hour)
	res := f.setStatus(publicationRef(concept.ID), status.Published)
	want = time.Date(2036, 3, 3, 0, 0, 0, 0, time.UTC)
	if got := res.Publication.Retention.ArchiveActionDate; got == nil || !got.Equal(want) {
		t.Errorf("после публикации: ожидалась %s, получено %v", want.Format(time.DateOnly), got)
	}
}

func TestUpdatePublication(t *testing.T) {
	f := newFixture(t)
	org := f.organisation("org-1", "Gemeente Utrecht")
	p := f.publication(status.Published)
	d := f.document(p.ID, true)
	f.setStatus(documentRef(d.ID), status.Published)
	f.drain()

	res, err := f.lifecycle.UpdatePublication(f.ctx, testActor, p.ID, PublicationPatch{
		OfficialTitle: ptr("Besluit (herzien)"),
		PublisherID:   ptr(org),
		ResponsibleID: ptr(org),
	})
	if err != nil {
		t.Fatalf("UpdatePublication: %v", err)
	}
	if res.AuditID == 0 || res.Publication.OfficialTitle != "Besluit (herzien)" {
		t.Fatalf("результат: %+v", res)
	}

	// Издатель входит в проекцию документа: переиндексируются оба.
	if !opsEqual(f.store.TasksFor(model.EntityPublication, p.ID), model.IndexUpsert) {
		t.Errorf("задачи публикации: %v", f.store.TasksFor(model.EntityPublication, p.ID))
	}
	if !opsEqual(f.store.TasksFor(model.EntityDocument, d.ID), model.IndexUpsert) {
		t.Errorf("задачи документа: %v", f.store.TasksFor(model.EntityDocument, d.ID))
	}

	h, err := f.store.Repos().Documents.GetHandling(f.ctx, d.ID)
	if err != nil {
		t.Fatalf("запись обработки: %v", err)
	}
	if h.OrganisationID == nil || *h.OrganisationID != org {
		t.Errorf("запись обработки должна ссылаться на %s: %v", org, h.OrganisationID)
	}

	// Повтор без изменений — без аудита и задач.
	f.drain()
	res, err = f.lifecycle.UpdatePublication(f.ctx, testActor, p.ID, PublicationPatch{OfficialTitle: ptr("Besluit (herzien)")})
	if err != nil {
		t.Fatalf("повторное изменение: %v", err)
	}
	if res.AuditID != 0 || f.store.PendingCount() != 0 {
		t.Errorf("пустое изменение: аудит %d, задач %d", res.AuditID, f.store.PendingCount())
	}

	f.setStatus(publicationRef(p.ID), status.Revoked)
	_, err = f.lifecycle.UpdatePublication(f.ctx, testActor, p.ID, PublicationPatch{Description: ptr("x")})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("изменение отозванной публикации: ожидалась ErrConflict, получено %v", err)
	}
}

// TestUpdatePublicationRejectsEmptyCategories — опубликованная публикация
// не остаётся без категорий со старой датой архивного действия.
func TestUpdatePublicationRejectsEmptyCategories(t *testing.T) {
	f := newFixture(t)
	cat := f.category("cat-1", 1, 5, retention.NominationDispose)

	published := f.publication(status.Published, cat)
	before := f.getPublication(published.ID).Retention
	if before.ArchiveActionDate == nil {
		t.Fatal("ожидалась рассчитанная дата архивного действия")
	}
	_, err := f.lifecycle.UpdatePublication(f.ctx, testActor, published.ID, PublicationPatch{CategoryIDs: &[]string{}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидалась ErrValidation, получено %v", err)
	}
	got := f.getPublication(published.ID)
	if !slices.Equal(got.CategoryIDs, []string{cat}) {
		t.Errorf("категории изменились: %v", got.CategoryIDs)
	}

	// Концепт можно оставить без категорий.
	concept := f.publication(status.Concept, cat)
	res, err := f.lifecycle.UpdatePublication(f.ctx, testActor, concept.ID, PublicationPatch{CategoryIDs: &[]string{}})
	if err != nil {
		t.Fatalf("концепт без категорий: %v", err)
	}
	if len(res.Publication.CategoryIDs) != 0 {
		t.Errorf("категории концепта: %v", res.Publication.CategoryIDs)
	}
}

func TestUpdateDocumentEnqueuesOnlyWhenVisible(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Concept)
	d := f.document(p.ID, true)
	f.setStatus(documentRef(d.ID), status.Published)

	if _, err := f.lifecycle.UpdateDocument(f.ctx, testActor, d.ID, DocumentPatch{ShortTitle: ptr("Bijlage 1")}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if n := len(f.store.TasksFor(model.EntityDocument, d.ID)); n != 0 {
		t.Fatalf("публикация в концепте: задач быть не должно, получено %d", n)
	}

	f.setStatus(publicationRef(p.ID), status.Published)
	f.drain()
	if _, err := f.lifecycle.UpdateDocument(f.ctx, testActor, d.ID, DocumentPatch{ShortTitle: ptr("Bijlage 2")}); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if !opsEqual(f.store.TasksFor(model.EntityDocument, d.ID), model.IndexUpsert) {
		t.Errorf("видимый документ: %v", f.store.TasksFor(model.EntityDocument, d.ID))
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	p := f.publication(status.Published)
	d := f.document(p.ID, true)
	f.setStatus(documentRef(d.ID), status.Published)
	f.drain()

	auditID, err := f.lifecycle.DeleteDocument(f.ctx, testActor, d.ID)
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if auditID == 0 {
		t.Error("ожидалась запись аудита")
	}
	if _, err := f.store.Repos().Documents.GetByID(f.ctx, d.ID); err == nil {
		t.Error("документ должен быть удалён")
	}
	if !slices.Contains(f.docs.deleted, "remote-"+d.ID) {
		t.Errorf("документ во внешнем хранилище не удалён: %v", f.docs.deleted)
	}

	tasks, _ := f.store.Repos().Tasks.ListForEntity(f.ctx, documentRef(d.ID))
	if len(tasks) != 1 || tasks[0].Operation != model.IndexRemove || !tasks[0].Force {
		t.Fatalf("ожидалась задача remove с force: %+v", tasks)
	}
	f.drain()
	if f.index.has(model.EntityDocument, d.ID) {
		t.Error("документ должен исчезнуть из индекса")
	}

	if _, err := f.lifecycle.DeleteDocument(f.ctx, testActor, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное удаление: ожидалась ErrNotFound, получено %v", err)
	}
}
