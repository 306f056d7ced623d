// dto.go — преобразование запросов generated в вызовы сервиса и
// JSON-представления ответов API.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/woo-publications/internal/api/generated"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/service"
)

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// --- Запросы: generated → service ---

func dateOf(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func ownerInput(o *generated.Owner) *service.OwnerInput {
	if o == nil {
		return nil
	}
	return &service.OwnerInput{Identifier: o.Identifier, DisplayName: deref(o.DisplayName)}
}

func refsOf(in []generated.EntityRef) []model.EntityRef {
	out := make([]model.EntityRef, 0, len(in))
	for _, r := range in {
		out = append(out, model.EntityRef{Type: model.EntityType(r.Type), ID: r.Id})
	}
	return out
}

func documentInput(req *generated.DocumentCreate) service.DocumentInput {
	return service.DocumentInput{
		Identifier:    deref(req.Identifier),
		OfficialTitle: req.OfficialTitle,
		ShortTitle:    deref(req.ShortTitle),
		Description:   deref(req.Description),
		CreationDate:  dateOf(req.CreationDate),
		FileFormat:    deref(req.FileFormat),
		FileName:      deref(req.FileName),
		FileSize:      deref(req.FileSize),
		ReceivedDate:  dateOf(req.ReceivedDate),
		SignedDate:    dateOf(req.SignedDate),
		SourceURL:     deref(req.SourceUrl),
		Owner:         ownerInput(req.Owner),
	}
}

func documentPatch(req *generated.DocumentPatch) service.DocumentPatch {
	return service.DocumentPatch{
		Identifier:    req.Identifier,
		OfficialTitle: req.OfficialTitle,
		ShortTitle:    req.ShortTitle,
		Description:   req.Description,
		CreationDate:  dateOf(req.CreationDate),
		FileFormat:    req.FileFormat,
		FileName:      req.FileName,
		ReceivedDate:  dateOf(req.ReceivedDate),
		SignedDate:    dateOf(req.SignedDate),
		SourceURL:     req.SourceUrl,
	}
}

// --- Ответы ---

type ownerResponse struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
}

func mapOwner(o model.Owner) ownerResponse {
	return ownerResponse{Identifier: o.Identifier, DisplayName: o.DisplayName}
}

type retentionResponse struct {
	ArchiveActionDate *string              `json:"archiveActionDate"`
	Nomination        retention.Nomination `json:"nomination,omitempty"`
	Source            string               `json:"source,omitempty"`
	SelectionCategory string               `json:"selectionCategory,omitempty"`
	Explanation       string               `json:"explanation,omitempty"`
	Overridden        bool                 `json:"overridden"`
}

type publicationResponse struct {
	ID             string            `json:"uuid"`
	OfficialTitle  string            `json:"officialTitle"`
	ShortTitle     string            `json:"shortTitle"`
	Description    string            `json:"description"`
	Status         status.Status     `json:"status"`
	Publisher      *string           `json:"publisher"`
	Responsible    *string           `json:"responsible"`
	Drafter        *string           `json:"drafter"`
	Categories     []string          `json:"categories"`
	Topics         []string          `json:"topics"`
	Owner          ownerResponse     `json:"owner"`
	RegisteredAt   time.Time         `json:"registeredAt"`
	LastModifiedAt time.Time         `json:"lastModifiedAt"`
	PublishedAt    *time.Time        `json:"publishedAt"`
	RevokedAt      *time.Time        `json:"revokedAt"`
	ValidFrom      *time.Time        `json:"validFrom"`
	ValidUntil     *time.Time        `json:"validUntil"`
	Retention      retentionResponse `json:"retention"`
}

func mapPublication(p *model.Publication) publicationResponse {
	return publicationResponse{
		ID:             p.ID,
		OfficialTitle:  p.OfficialTitle,
		ShortTitle:     p.ShortTitle,
		Description:    p.Description,
		Status:         p.Status,
		Publisher:      p.PublisherID,
		Responsible:    p.ResponsibleID,
		Drafter:        p.DrafterID,
		Categories:     nonNil(p.CategoryIDs),
		Topics:         nonNil(p.TopicIDs),
		Owner:          mapOwner(p.Owner),
		RegisteredAt:   p.RegisteredAt,
		LastModifiedAt: p.LastModifiedAt,
		PublishedAt:    p.PublishedAt,
		RevokedAt:      p.RevokedAt,
		ValidFrom:      p.ValidFrom,
		ValidUntil:     p.ValidUntil,
		Retention: retentionResponse{
			ArchiveActionDate: formatDate(p.Retention.ArchiveActionDate),
			Nomination:        p.Retention.Nomination,
			Source:            p.Retention.Source,
			SelectionCategory: p.Retention.SelectionCategory,
			Explanation:       p.Retention.Explanation,
			Overridden:        p.Retention.Overridden,
		},
	}
}

type uploadStateResponse struct {
	Service  string `json:"service,omitempty"`
	Complete bool   `json:"complete"`
}

type handlingResponse struct {
	Kind         string    `json:"kind"`
	OccurredAt   time.Time `json:"occurredAt"`
	Organisation *string   `json:"organisation"`
}

type documentResponse struct {
	ID             string              `json:"uuid"`
	Publication    string              `json:"publication"`
	Identifier     string              `json:"identifier"`
	OfficialTitle  string              `json:"officialTitle"`
	ShortTitle     string              `json:"shortTitle"`
	Description    string              `json:"description"`
	CreationDate   string              `json:"creationDate"`
	FileFormat     string              `json:"fileFormat"`
	FileName       string              `json:"fileName"`
	FileSize       int64               `json:"fileSize"`
	Status         status.Status       `json:"status"`
	Owner          ownerResponse       `json:"owner"`
	RegisteredAt   time.Time           `json:"registeredAt"`
	LastModifiedAt time.Time           `json:"lastModifiedAt"`
	PublishedAt    *time.Time          `json:"publishedAt"`
	RevokedAt      *time.Time          `json:"revokedAt"`
	ReceivedDate   *string             `json:"receivedDate"`
	SignedDate     *string             `json:"signedDate"`
	SourceURL      string              `json:"sourceUrl"`
	Upload         uploadStateResponse `json:"upload"`
	Handling       *handlingResponse   `json:"handling,omitempty"`
}

func mapDocument(d *model.Document, h *model.DocumentHandling) documentResponse {
	resp := documentResponse{
		ID:             d.ID,
		Publication:    d.PublicationID,
		Identifier:     d.Identifier,
		OfficialTitle:  d.OfficialTitle,
		ShortTitle:     d.ShortTitle,
		Description:    d.Description,
		CreationDate:   d.CreationDate.Format(dateLayout),
		FileFormat:     d.FileFormat,
		FileName:       d.FileName,
		FileSize:       d.FileSize,
		Status:         d.Status,
		Owner:          mapOwner(d.Owner),
		RegisteredAt:   d.RegisteredAt,
		LastModifiedAt: d.LastModifiedAt,
		PublishedAt:    d.PublishedAt,
		RevokedAt:      d.RevokedAt,
		ReceivedDate:   formatDate(d.ReceivedDate),
		SignedDate:     formatDate(d.SignedDate),
		SourceURL:      d.SourceURL,
		Upload:         uploadStateResponse{Service: d.Upload.Service, Complete: d.Upload.Complete},
	}
	if h != nil {
		resp.Handling = &handlingResponse{Kind: h.Kind, OccurredAt: h.OccurredAt, Organisation: h.OrganisationID}
	}
	return resp
}

type topicResponse struct {
	ID             string        `json:"uuid"`
	OfficialTitle  string        `json:"officialTitle"`
	Description    string        `json:"description"`
	Status         status.Status `json:"status"`
	Promoted       bool          `json:"promoted"`
	Owner          ownerResponse `json:"owner"`
	RegisteredAt   time.Time     `json:"registeredAt"`
	LastModifiedAt time.Time     `json:"lastModifiedAt"`
	PublishedAt    *time.Time    `json:"publishedAt"`
	RevokedAt      *time.Time    `json:"revokedAt"`
}

func mapTopic(t *model.Topic) topicResponse {
	return topicResponse{
		ID:             t.ID,
		OfficialTitle:  t.OfficialTitle,
		Description:    t.Description,
		Status:         t.Status,
		Promoted:       t.Promoted,
		Owner:          mapOwner(t.Owner),
		RegisteredAt:   t.RegisteredAt,
		LastModifiedAt: t.LastModifiedAt,
		PublishedAt:    t.PublishedAt,
		RevokedAt:      t.RevokedAt,
	}
}

// mutationResponse — снимок сущности и ID записи аудита (0 — изменений нет).
type mutationResponse[T any] struct {
	Data    T     `json:"data"`
	AuditID int64 `json:"auditId"`
}

type statusResponse struct {
	Type     model.EntityType `json:"type"`
	ID       string           `json:"uuid"`
	From     status.Status    `json:"from"`
	To       status.Status    `json:"to"`
	AuditID  int64            `json:"auditId"`
	Cascaded []string         `json:"cascaded"`
	TaskIDs  []int64          `json:"taskIds"`
	Data     any              `json:"data"`
}

func mapStatusResult(res *service.StatusResult) statusResponse {
	resp := statusResponse{
		Type:     res.Ref.Type,
		ID:       res.Ref.ID,
		From:     res.From,
		To:       res.To,
		AuditID:  res.AuditID,
		Cascaded: nonNil(res.Cascaded),
		TaskIDs:  nonNil(res.TaskIDs),
	}
	switch {
	case res.Publication != nil:
		resp.Data = mapPublication(res.Publication)
	case res.Document != nil:
		resp.Data = mapDocument(res.Document, nil)
	case res.Topic != nil:
		resp.Data = mapTopic(res.Topic)
	}
	return resp
}

type uploadResponse struct {
	ID            string                   `json:"uuid"`
	Document      string                   `json:"document"`
	State         model.UploadSessionState `json:"state"`
	TotalSize     int64                    `json:"totalSize"`
	ReceivedBytes int64                    `json:"receivedBytes"`
	Received      []ranges.Range           `json:"received"`
	Missing       []ranges.Range           `json:"missing"`
	Parts         []ranges.Range           `json:"parts,omitempty"`
	ChunkCount    int                      `json:"chunkCount"`
	StartedAt     time.Time                `json:"startedAt"`
	LastChunkAt   *time.Time               `json:"lastChunkAt"`
	ExpiresAt     time.Time                `json:"expiresAt"`
}

func mapUpload(v *service.UploadView) uploadResponse {
	s := v.Session
	return uploadResponse{
		ID:            s.ID,
		Document:      s.DocumentID,
		State:         s.State,
		TotalSize:     s.TotalSize,
		ReceivedBytes: s.ReceivedBytes(),
		Received:      nonNil([]ranges.Range(s.Ranges)),
		Missing:       nonNil(v.Missing),
		Parts:         v.Parts,
		ChunkCount:    s.ChunkCount,
		StartedAt:     s.StartedAt,
		LastChunkAt:   s.LastChunkAt,
		ExpiresAt:     s.ExpiresAt,
	}
}

type auditEntryResponse struct {
	ID         int64                        `json:"id"`
	Actor      model.Actor                  `json:"actor"`
	Timestamp  time.Time                    `json:"timestamp"`
	EntityType model.EntityType             `json:"entityType"`
	EntityID   string                       `json:"entityId"`
	Action     string                       `json:"action"`
	Changes    map[string]model.FieldChange `json:"changes"`
	Remarks    string                       `json:"remarks,omitempty"`
}

func mapAuditEntry(e *model.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID,
		Actor:      e.Actor,
		Timestamp:  e.Timestamp,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Changes:    e.Changes,
		Remarks:    e.Remarks,
	}
}

type indexTaskResponse struct {
	ID            int64                `json:"id"`
	EntityType    model.EntityType     `json:"entityType"`
	EntityID      string               `json:"entityId"`
	Operation     model.IndexOperation `json:"operation"`
	Force         bool                 `json:"force"`
	State         model.IndexTaskState `json:"state"`
	AttemptCount  int                  `json:"attemptCount"`
	LastError     *string              `json:"lastError"`
	EnqueuedAt    time.Time            `json:"enqueuedAt"`
	NextAttemptAt time.Time            `json:"nextAttemptAt"`
}

func mapIndexTask(t *model.IndexSyncTask) indexTaskResponse {
	return indexTaskResponse{
		ID:            t.ID,
		EntityType:    t.EntityType,
		EntityID:      t.EntityID,
		Operation:     t.Operation,
		Force:         t.Force,
		State:         t.State,
		AttemptCount:  t.AttemptCount,
		LastError:     t.LastError,
		EnqueuedAt:    t.EnqueuedAt,
		NextAttemptAt: t.NextAttemptAt,
	}
}

// listResponse — страница списка.
type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func mapAll[S, T any](items []S, fn func(S) T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
