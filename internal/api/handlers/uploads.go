// uploads.go — смена статуса и возобновляемая загрузка файлов.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/woo-publications/internal/api/errors"
	"github.com/bigkaa/woo-publications/internal/api/generated"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/status"
)

// SetPublicationStatus — POST /api/v1/publications/{id}/status.
func (h *APIHandler) SetPublicationStatus(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	h.setStatus(w, r, model.EntityRef{Type: model.EntityPublication, ID: id})
}

// SetDocumentStatus — POST /api/v1/documents/{id}/status.
func (h *APIHandler) SetDocumentStatus(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	h.setStatus(w, r, model.EntityRef{Type: model.EntityDocument, ID: id})
}

// SetTopicStatus — POST /api/v1/topics/{id}/status.
func (h *APIHandler) SetTopicStatus(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	h.setStatus(w, r, model.EntityRef{Type: model.EntityTopic, ID: id})
}

func (h *APIHandler) setStatus(w http.ResponseWriter, r *http.Request, ref model.EntityRef) {
	var req generated.StatusChange
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.lifecycle.SetStatus(r.Context(), actorFrom(r), ref, status.Status(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка смены статуса")
		return
	}
	writeJSON(w, http.StatusOK, mapStatusResult(res))
}

// BeginUpload — POST /api/v1/documents/{id}/uploads.
func (h *APIHandler) BeginUpload(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	var req generated.BeginUploadJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.uploads.BeginUpload(r.Context(), id, req.Size)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка открытия сессии загрузки")
		return
	}
	writeJSON(w, http.StatusCreated, mapUpload(view))
}

// ReceiveChunk — PUT /api/v1/uploads/{sid}/chunks?offset=N.
// Тело передаётся в хранилище потоком; размер части — Content-Length.
func (h *APIHandler) ReceiveChunk(w http.ResponseWriter, r *http.Request, sid generated.SessionIdPath, params generated.ReceiveChunkParams) {
	if r.ContentLength <= 0 {
		apierrors.ValidationError(w, "Требуется заголовок Content-Length с размером части")
		return
	}
	body := http.MaxBytesReader(w, r.Body, r.ContentLength)

	view, err := h.uploads.ReceiveChunk(r.Context(), sid, params.Offset, body, r.ContentLength)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка приёма части")
		return
	}
	writeJSON(w, http.StatusOK, mapUpload(view))
}

// GetUpload — GET /api/v1/uploads/{sid}.
func (h *APIHandler) GetUpload(w http.ResponseWriter, r *http.Request, sid generated.SessionIdPath) {
	view, err := h.uploads.GetSession(r.Context(), sid)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения сессии загрузки")
		return
	}
	writeJSON(w, http.StatusOK, mapUpload(view))
}

// FinalizeUpload — POST /api/v1/uploads/{sid}/finalize.
func (h *APIHandler) FinalizeUpload(w http.ResponseWriter, r *http.Request, sid generated.SessionIdPath) {
	res, err := h.uploads.Finalize(r.Context(), actorFrom(r), sid)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка завершения загрузки")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[documentResponse]{
		Data: mapDocument(res.Document, nil), AuditID: res.AuditID,
	})
}

// AbortUpload — DELETE /api/v1/uploads/{sid}.
func (h *APIHandler) AbortUpload(w http.ResponseWriter, r *http.Request, sid generated.SessionIdPath) {
	sess, err := h.uploads.Abort(r.Context(), sid)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка прерывания загрузки")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uuid": sess.ID, "state": sess.State})
}
