// Пакет memrepo — репозитории записей в памяти с семантикой транзакций
// repository.Store. Используется тестами сервисного слоя и HTTP API.
package memrepo

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// Store — хранилище записей в памяти.
// Транзакции выполняются последовательно; при ошибке fn состояние
// восстанавливается из снимка.
type Store struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	st    *memState
	repos *repository.Repositories
	// docUpdateErr — ошибки, которые вернёт Documents.Update для документа
	docUpdateErr map[string]error
}

type memTask struct {
	model.IndexSyncTask
	lockedUntil time.Time
}

type memState struct {
	pubs      map[string]model.Publication
	docs      map[string]model.Document
	handlings map[string]model.DocumentHandling
	topics    map[string]model.Topic
	owners    map[string]model.Owner
	cats      map[string]model.InformationCategory
	orgs      map[string]model.Organisation
	sessions  map[string]model.UploadSession
	tasks     map[int64]memTask
	audit     []model.AuditEntry
	nextTask  int64
	nextAudit int64
}

func New() *Store {
	s := &Store{st: &memState{
		pubs:      map[string]model.Publication{},
		docs:      map[string]model.Document{},
		handlings: map[string]model.DocumentHandling{},
		topics:    map[string]model.Topic{},
		owners:    map[string]model.Owner{},
		cats:      map[string]model.InformationCategory{},
		orgs:      map[string]model.Organisation{},
		sessions:  map[string]model.UploadSession{},
		tasks:     map[int64]memTask{},
	}}
	s.repos = &repository.Repositories{
		Publications:  &memPublications{s},
		Documents:     &memDocuments{s},
		Topics:        &memTopics{s},
		Owners:        &memOwners{s},
		Categories:    &memCategories{s},
		Organisations: &memOrganisations{s},
		Uploads:       &memUploads{s},
		Tasks:         &memTasks{s},
		Audit:         &memAudit{s},
	}
	return s
}

func (s *Store) Repos() *repository.Repositories {
	return s.repos
}

func (s *Store) InTx(_ context.Context, fn func(r *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.st.clone()
	s.mu.Unlock()

	if err := fn(s.repos); err != nil {
		s.mu.Lock()
		s.st = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

// Слайсы внутри значений никогда не меняются на месте, поэтому
// копирования карт достаточно.
func (st *memState) clone() *memState {
	return &memState{
		pubs:      cloneMap(st.pubs),
		docs:      cloneMap(st.docs),
		handlings: cloneMap(st.handlings),
		topics:    cloneMap(st.topics),
		owners:    cloneMap(st.owners),
		cats:      cloneMap(st.cats),
		orgs:      cloneMap(st.orgs),
		sessions:  cloneMap(st.sessions),
		tasks:     cloneMap(st.tasks),
		audit:     slices.Clone(st.audit),
		nextTask:  st.nextTask,
		nextAudit: st.nextAudit,
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) lock() *memState {
	s.mu.Lock()
	return s.st
}

func (s *Store) unlock() {
	s.mu.Unlock()
}

// --- Публикации ---

type memPublications struct{ s *Store }

func copyPublication(p model.Publication) *model.Publication {
	p.CategoryIDs = slices.Clone(p.CategoryIDs)
	p.TopicIDs = slices.Clone(p.TopicIDs)
	return &p
}

func (m *memPublications) Create(_ context.Context, p *model.Publication) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.pubs[p.ID]; ok {
		return repository.ErrConflict
	}
	st.pubs[p.ID] = *copyPublication(*p)
	return nil
}

func (m *memPublications) GetByID(_ context.Context, id string) (*model.Publication, error) {
	st := m.s.lock()
	defer m.s.unlock()
	p, ok := st.pubs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyPublication(p), nil
}

func (m *memPublications) GetForUpdate(ctx context.Context, id string) (*model.Publication, error) {
	return m.GetByID(ctx, id)
}

func (m *memPublications) Update(_ context.Context, p *model.Publication) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.pubs[p.ID]; !ok {
		return repository.ErrNotFound
	}
	st.pubs[p.ID] = *copyPublication(*p)
	return nil
}

func (m *memPublications) ListIDsByCategory(_ context.Context, categoryID string) ([]string, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var ids []string
	for id, p := range st.pubs {
		if slices.Contains(p.CategoryIDs, categoryID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// --- Документы ---

type memDocuments struct{ s *Store }

func (m *memDocuments) Create(_ context.Context, d *model.Document) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.pubs[d.PublicationID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := st.docs[d.ID]; ok {
		return repository.ErrConflict
	}
	st.docs[d.ID] = *d
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id string) (*model.Document, error) {
	st := m.s.lock()
	defer m.s.unlock()
	d, ok := st.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *memDocuments) GetForUpdate(ctx context.Context, id string) (*model.Document, error) {
	return m.GetByID(ctx, id)
}

func (m *memDocuments) Update(_ context.Context, d *model.Document) error {
	st := m.s.lock()
	defer m.s.unlock()
	if err := m.s.docUpdateErr[d.ID]; err != nil {
		return err
	}
	if _, ok := st.docs[d.ID]; !ok {
		return repository.ErrNotFound
	}
	// CHECK documents_published_requires_upload
	if d.Status == status.Published && !d.Upload.Complete {
		return repository.ErrConflict
	}
	st.docs[d.ID] = *d
	return nil
}

func (m *memDocuments) Delete(_ context.Context, id string) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.docs, id)
	delete(st.handlings, id)
	for sid, sess := range st.sessions {
		if sess.DocumentID == id {
			delete(st.sessions, sid)
		}
	}
	return nil
}

func (m *memDocuments) ListByPublication(_ context.Context, publicationID string) ([]*model.Document, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var out []*model.Document
	for _, d := range st.docs {
		if d.PublicationID == publicationID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memDocuments) ListByPublicationForUpdate(ctx context.Context, publicationID string) ([]*model.Document, error) {
	return m.ListByPublication(ctx, publicationID)
}

func (m *memDocuments) UpsertHandling(_ context.Context, h *model.DocumentHandling) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.docs[h.DocumentID]; !ok {
		return repository.ErrNotFound
	}
	st.handlings[h.DocumentID] = *h
	return nil
}

func (m *memDocuments) GetHandling(_ context.Context, documentID string) (*model.DocumentHandling, error) {
	st := m.s.lock()
	defer m.s.unlock()
	h, ok := st.handlings[documentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

// --- Темы ---

type memTopics struct{ s *Store }

func (m *memTopics) Create(_ context.Context, t *model.Topic) error {
	st := m.s.lock()
	defer m.s.unlock()
	st.topics[t.ID] = *t
	return nil
}

func (m *memTopics) GetByID(_ context.Context, id string) (*model.Topic, error) {
	st := m.s.lock()
	defer m.s.unlock()
	t, ok := st.topics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m *memTopics) GetForUpdate(ctx context.Context, id string) (*model.Topic, error) {
	return m.GetByID(ctx, id)
}

func (m *memTopics) GetByIDs(_ context.Context, ids []string) ([]*model.Topic, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var out []*model.Topic
	for _, id := range ids {
		if t, ok := st.topics[id]; ok {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (m *memTopics) Update(_ context.Context, t *model.Topic) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.topics[t.ID]; !ok {
		return repository.ErrNotFound
	}
	st.topics[t.ID] = *t
	return nil
}

// --- Справочники ---

type memOwners struct{ s *Store }

func (m *memOwners) Resolve(_ context.Context, identifier, displayName string) (model.Owner, error) {
	st := m.s.lock()
	defer m.s.unlock()
	key := identifier + "\x00" + displayName
	if o, ok := st.owners[key]; ok {
		return o, nil
	}
	o := model.Owner{ID: uuid.NewString(), Identifier: identifier, DisplayName: displayName}
	st.owners[key] = o
	return o, nil
}

type memCategories struct{ s *Store }

func (m *memCategories) GetByID(_ context.Context, id string) (*model.InformationCategory, error) {
	st := m.s.lock()
	defer m.s.unlock()
	c, ok := st.cats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m *memCategories) GetByIDs(_ context.Context, ids []string) ([]*model.InformationCategory, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var out []*model.InformationCategory
	for _, id := range ids {
		if c, ok := st.cats[id]; ok {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memCategories) Upsert(_ context.Context, c *model.InformationCategory) error {
	st := m.s.lock()
	defer m.s.unlock()
	st.cats[c.ID] = *c
	return nil
}

type memOrganisations struct{ s *Store }

func (m *memOrganisations) GetByID(_ context.Context, id string) (*model.Organisation, error) {
	st := m.s.lock()
	defer m.s.unlock()
	o, ok := st.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (m *memOrganisations) Upsert(_ context.Context, o *model.Organisation) error {
	st := m.s.lock()
	defer m.s.unlock()
	st.orgs[o.ID] = *o
	return nil
}

// --- Сессии загрузки ---

type memUploads struct{ s *Store }

func copySession(s model.UploadSession) *model.UploadSession {
	s.Ranges = slices.Clone(s.Ranges)
	return &s
}

func (m *memUploads) Create(_ context.Context, sess *model.UploadSession) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.docs[sess.DocumentID]; !ok {
		return repository.ErrNotFound
	}
	for _, other := range st.sessions {
		if other.DocumentID == sess.DocumentID && other.State == model.UploadActive {
			return repository.ErrConflict
		}
	}
	st.sessions[sess.ID] = *copySession(*sess)
	return nil
}

func (m *memUploads) GetByID(_ context.Context, id string) (*model.UploadSession, error) {
	st := m.s.lock()
	defer m.s.unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(sess), nil
}

func (m *memUploads) GetForUpdate(ctx context.Context, id string) (*model.UploadSession, error) {
	return m.GetByID(ctx, id)
}

func (m *memUploads) Update(_ context.Context, sess *model.UploadSession) error {
	st := m.s.lock()
	defer m.s.unlock()
	if _, ok := st.sessions[sess.ID]; !ok {
		return repository.ErrNotFound
	}
	st.sessions[sess.ID] = *copySession(*sess)
	return nil
}

func (m *memUploads) CloseActive(_ context.Context, documentID string, state model.UploadSessionState) (int64, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var n int64
	for id, sess := range st.sessions {
		if sess.DocumentID == documentID && sess.State == model.UploadActive {
			sess.State = state
			st.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

func (m *memUploads) ExpireStale(_ context.Context, now, idleBefore time.Time) (int64, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var n int64
	for id, sess := range st.sessions {
		if sess.State != model.UploadActive {
			continue
		}
		last := sess.StartedAt
		if sess.LastChunkAt != nil {
			last = *sess.LastChunkAt
		}
		if !sess.ExpiresAt.After(now) || last.Before(idleBefore) {
			sess.State = model.UploadExpired
			st.sessions[id] = sess
			n++
		}
	}
	return n, nil
}

// --- Очередь индекса ---

type memTasks struct{ s *Store }

func (m *memTasks) Enqueue(_ context.Context, ref model.EntityRef, op model.IndexOperation, force bool) (int64, error) {
	st := m.s.lock()
	defer m.s.unlock()
	st.nextTask++
	now := time.Now().UTC()
	st.tasks[st.nextTask] = memTask{IndexSyncTask: model.IndexSyncTask{
		ID:            st.nextTask,
		EntityType:    ref.Type,
		EntityID:      ref.ID,
		Operation:     op,
		Force:         force,
		EnqueuedAt:    now,
		State:         model.TaskPending,
		NextAttemptAt: time.Time{},
	}}
	return st.nextTask, nil
}

func (m *memTasks) ClaimHeads(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*model.IndexSyncTask, error) {
	st := m.s.lock()
	defer m.s.unlock()

	heads := map[model.EntityRef]memTask{}
	for _, t := range st.tasks {
		if t.State != model.TaskPending {
			continue
		}
		ref := model.EntityRef{Type: t.EntityType, ID: t.EntityID}
		if cur, ok := heads[ref]; !ok || t.ID < cur.ID {
			heads[ref] = t
		}
	}

	var ready []memTask
	for _, t := range heads {
		if !t.NextAttemptAt.After(now) && !t.lockedUntil.After(now) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	if len(ready) > limit {
		ready = ready[:limit]
	}

	out := make([]*model.IndexSyncTask, 0, len(ready))
	for _, t := range ready {
		t.lockedUntil = now.Add(lease)
		st.tasks[t.ID] = t
		task := t.IndexSyncTask
		until := t.lockedUntil
		task.LockedUntil = &until
		out = append(out, &task)
	}
	return out, nil
}

func (m *memTasks) Complete(_ context.Context, id int64, lockedUntil time.Time) error {
	st := m.s.lock()
	defer m.s.unlock()
	t, ok := st.tasks[id]
	if !ok || !t.lockedUntil.Equal(lockedUntil) {
		return repository.ErrLeaseLost
	}
	delete(st.tasks, id)
	return nil
}

func (m *memTasks) Fail(_ context.Context, id int64, lockedUntil time.Time, lastErr string, nextAttemptAt time.Time, exhausted bool) error {
	st := m.s.lock()
	defer m.s.unlock()
	t, ok := st.tasks[id]
	if !ok || !t.lockedUntil.Equal(lockedUntil) {
		return repository.ErrLeaseLost
	}
	t.AttemptCount++
	t.LastError = &lastErr
	t.NextAttemptAt = nextAttemptAt
	t.lockedUntil = time.Time{}
	if exhausted {
		t.State = model.TaskFailed
	}
	st.tasks[id] = t
	return nil
}

func (m *memTasks) sorted(filter func(memTask) bool) []*model.IndexSyncTask {
	st := m.s.lock()
	defer m.s.unlock()
	var out []*model.IndexSyncTask
	for _, t := range st.tasks {
		if filter(t) {
			task := t.IndexSyncTask
			out = append(out, &task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memTasks) ListFailed(_ context.Context, limit, offset int) ([]*model.IndexSyncTask, error) {
	all := m.sorted(func(t memTask) bool { return t.State == model.TaskFailed })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memTasks) ListForEntity(_ context.Context, ref model.EntityRef) ([]*model.IndexSyncTask, error) {
	return m.sorted(func(t memTask) bool {
		return t.EntityType == ref.Type && t.EntityID == ref.ID
	}), nil
}

func (m *memTasks) Requeue(_ context.Context, id int64, now time.Time) error {
	st := m.s.lock()
	defer m.s.unlock()
	t, ok := st.tasks[id]
	if !ok || t.State != model.TaskFailed {
		return repository.ErrNotFound
	}
	t.State = model.TaskPending
	t.AttemptCount = 0
	t.NextAttemptAt = now
	st.tasks[id] = t
	return nil
}

func (m *memTasks) Stats(_ context.Context) (model.IndexTaskStats, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var stats model.IndexTaskStats
	for _, t := range st.tasks {
		if t.State == model.TaskFailed {
			stats.Failed++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

// --- Аудит ---

type memAudit struct{ s *Store }

func (m *memAudit) Append(_ context.Context, e *model.AuditEntry) (int64, error) {
	st := m.s.lock()
	defer m.s.unlock()
	st.nextAudit++
	entry := *e
	entry.ID = st.nextAudit
	st.audit = append(st.audit, entry)
	return entry.ID, nil
}

func (m *memAudit) ListByEntity(_ context.Context, entityID string) ([]*model.AuditEntry, error) {
	st := m.s.lock()
	defer m.s.unlock()
	var out []*model.AuditEntry
	for _, e := range st.audit {
		if e.EntityID == entityID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

// --- Инспекция состояния ---

// FailDocumentUpdate заставляет Documents.Update документа id возвращать err.
// nil снимает ошибку.
func (s *Store) FailDocumentUpdate(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docUpdateErr == nil {
		s.docUpdateErr = map[string]error{}
	}
	if err == nil {
		delete(s.docUpdateErr, id)
		return
	}
	s.docUpdateErr[id] = err
}

// TasksFor возвращает операции очереди сущности в порядке постановки.
func (s *Store) TasksFor(t model.EntityType, id string) []model.IndexOperation {
	tasks, _ := s.repos.Tasks.ListForEntity(context.Background(), model.EntityRef{Type: t, ID: id})
	ops := make([]model.IndexOperation, 0, len(tasks))
	for _, task := range tasks {
		ops = append(ops, task.Operation)
	}
	return ops
}

// PendingCount — число задач в очереди.
func (s *Store) PendingCount() int {
	st, _ := s.repos.Tasks.Stats(context.Background())
	return st.Pending
}

// AuditActions — действия журнала аудита сущности через запятую.
func (s *Store) AuditActions(entityID string) string {
	entries, _ := s.repos.Audit.ListByEntity(context.Background(), entityID)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return strings.Join(actions, ",")
}
