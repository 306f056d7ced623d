// publications.go — публикации, документы и темы.
package handlers

import (
	"net/http"

	"github.com/bigkaa/woo-publications/internal/api/generated"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/service"
)

// RegisterPublication — POST /api/v1/publications.
func (h *APIHandler) RegisterPublication(w http.ResponseWriter, r *http.Request) {
	var req generated.RegisterPublicationJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.RegisterPublication(r.Context(), actorFrom(r), service.PublicationInput{
		OfficialTitle: req.OfficialTitle,
		ShortTitle:    deref(req.ShortTitle),
		Description:   deref(req.Description),
		PublisherID:   req.Publisher,
		ResponsibleID: req.Responsible,
		DrafterID:     req.Drafter,
		CategoryIDs:   deref(req.Categories),
		TopicIDs:      deref(req.Topics),
		Status:        status.Status(deref(req.Status)),
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Owner:         ownerInput(req.Owner),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка регистрации публикации")
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse[publicationResponse]{
		Data: mapPublication(res.Publication), AuditID: res.AuditID,
	})
}

// GetPublication — GET /api/v1/publications/{id}.
func (h *APIHandler) GetPublication(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	p, err := h.lifecycle.GetPublication(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения публикации")
		return
	}
	writeJSON(w, http.StatusOK, mapPublication(p))
}

// UpdatePublication — PATCH /api/v1/publications/{id}.
func (h *APIHandler) UpdatePublication(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	var req generated.UpdatePublicationJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.UpdatePublication(r.Context(), actorFrom(r), id, service.PublicationPatch{
		OfficialTitle: req.OfficialTitle,
		ShortTitle:    req.ShortTitle,
		Description:   req.Description,
		PublisherID:   req.Publisher,
		ResponsibleID: req.Responsible,
		DrafterID:     req.Drafter,
		CategoryIDs:   req.Categories,
		TopicIDs:      req.Topics,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка изменения публикации")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[publicationResponse]{
		Data: mapPublication(res.Publication), AuditID: res.AuditID,
	})
}

// ListDocuments — GET /api/v1/publications/{id}/documents?limit=&offset=.
func (h *APIHandler) ListDocuments(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath, params generated.ListDocumentsParams) {
	limit, offset := pagination(params.Limit, params.Offset)
	docs, err := h.lifecycle.ListDocuments(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения документов")
		return
	}
	start := min(offset, len(docs))
	page := docs[start:min(start+limit, len(docs))]
	items := make([]documentResponse, 0, len(page))
	for _, d := range page {
		items = append(items, mapDocument(d, nil))
	}
	writeJSON(w, http.StatusOK, listResponse[documentResponse]{Items: items, Limit: limit, Offset: offset})
}

// RegisterDocument — POST /api/v1/publications/{id}/documents.
func (h *APIHandler) RegisterDocument(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	var req generated.RegisterDocumentJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.RegisterDocument(r.Context(), actorFrom(r), id, documentInput(&req))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка регистрации документа")
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse[documentResponse]{
		Data: mapDocument(res.Document, nil), AuditID: res.AuditID,
	})
}

// GetDocument — GET /api/v1/documents/{id}.
func (h *APIHandler) GetDocument(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	d, handling, err := h.lifecycle.GetDocument(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения документа")
		return
	}
	writeJSON(w, http.StatusOK, mapDocument(d, handling))
}

// UpdateDocument — PATCH /api/v1/documents/{id}.
func (h *APIHandler) UpdateDocument(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	var req generated.UpdateDocumentJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.UpdateDocument(r.Context(), actorFrom(r), id, documentPatch(&req))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка изменения документа")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[documentResponse]{
		Data: mapDocument(res.Document, nil), AuditID: res.AuditID,
	})
}

// DeleteDocument — DELETE /api/v1/documents/{id}.
func (h *APIHandler) DeleteDocument(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	auditID, err := h.lifecycle.DeleteDocument(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка удаления документа")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"auditId": auditID})
}

// RegisterTopic — POST /api/v1/topics.
func (h *APIHandler) RegisterTopic(w http.ResponseWriter, r *http.Request) {
	var req generated.RegisterTopicJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.RegisterTopic(r.Context(), actorFrom(r), service.TopicInput{
		OfficialTitle: req.OfficialTitle,
		Description:   deref(req.Description),
		Promoted:      deref(req.Promoted),
		Status:        status.Status(deref(req.Status)),
		Owner:         ownerInput(req.Owner),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка регистрации темы")
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse[topicResponse]{
		Data: mapTopic(res.Topic), AuditID: res.AuditID,
	})
}

// GetTopic — GET /api/v1/topics/{id}.
func (h *APIHandler) GetTopic(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	t, err := h.lifecycle.GetTopic(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения темы")
		return
	}
	writeJSON(w, http.StatusOK, mapTopic(t))
}
