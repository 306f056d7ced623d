// admin.go — операции оператора: владение, сроки хранения, массовые
// операции, журнал аудита и очередь синхронизации индекса.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/woo-publications/internal/api/errors"
	"github.com/bigkaa/woo-publications/internal/api/generated"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/service"
)

type entityRefResponse struct {
	Type    model.EntityType `json:"type"`
	ID      string           `json:"uuid"`
	AuditID int64            `json:"auditId,omitempty"`
}

// TransferOwnership — POST /api/v1/owners/transfer.
// Одна сущность или пачка; при ошибке изменения не применяются ни к одной.
func (h *APIHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req generated.TransferOwnershipJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	changes, err := h.ownership.ChangeOwner(r.Context(), actorFrom(r), refsOf(req.Entities), *ownerInput(&req.Owner))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка смены владельца")
		return
	}
	items := mapAll(changes, func(c service.OwnerChange) entityRefResponse {
		return entityRefResponse{Type: c.Ref.Type, ID: c.Ref.ID, AuditID: c.AuditID}
	})
	writeJSON(w, http.StatusOK, listResponse[entityRefResponse]{Items: items})
}

// RecalculateRetention — POST /api/v1/publications/{id}/retention/recalculate.
func (h *APIHandler) RecalculateRetention(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	res, err := h.retention.Recalculate(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка пересчёта срока хранения")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[publicationResponse]{
		Data: mapPublication(res.Publication), AuditID: res.AuditID,
	})
}

// SetRetentionOverride — PUT /api/v1/publications/{id}/retention/override.
func (h *APIHandler) SetRetentionOverride(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	var req generated.SetRetentionOverrideJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ArchiveActionDate.Time.IsZero() {
		apierrors.ValidationError(w, "archiveActionDate обязателен")
		return
	}
	res, err := h.retention.SetOverride(r.Context(), actorFrom(r), id, req.ArchiveActionDate.Time)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка установки даты архивного действия")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[publicationResponse]{
		Data: mapPublication(res.Publication), AuditID: res.AuditID,
	})
}

// ClearRetentionOverride — DELETE /api/v1/publications/{id}/retention/override.
func (h *APIHandler) ClearRetentionOverride(w http.ResponseWriter, r *http.Request, id generated.EntityIdPath) {
	res, err := h.retention.ClearOverride(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка снятия даты архивного действия")
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse[publicationResponse]{
		Data: mapPublication(res.Publication), AuditID: res.AuditID,
	})
}

// UpdateCategoryRule — POST /api/v1/categories/{id}/retention.
// Сохраняет правило и пересчитывает связанные публикации.
func (h *APIHandler) UpdateCategoryRule(w http.ResponseWriter, r *http.Request, id string) {
	var req generated.UpdateCategoryRuleJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.retention.UpdateCategoryRule(r.Context(), actorFrom(r), &model.InformationCategory{
		ID:                id,
		Name:              req.Name,
		Order:             deref(req.Order),
		RetentionYears:    req.RetentionYears,
		Nomination:        retention.Nomination(req.Nomination),
		StartEvent:        retention.StartEvent(deref(req.StartEvent)),
		Source:            deref(req.Source),
		SelectionCategory: deref(req.SelectionCategory),
		Explanation:       deref(req.Explanation),
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка изменения правила категории")
		return
	}
	c := res.Category
	writeJSON(w, http.StatusOK, map[string]any{
		"category": map[string]any{
			"uuid":              c.ID,
			"name":              c.Name,
			"order":             c.Order,
			"retentionYears":    c.RetentionYears,
			"nomination":        c.Nomination,
			"startEvent":        c.StartEvent,
			"source":            c.Source,
			"selectionCategory": c.SelectionCategory,
			"explanation":       c.Explanation,
		},
		"recalculatedPublications": res.Publications,
	})
}

type bulkItemResponse struct {
	Type    model.EntityType `json:"type"`
	ID      string           `json:"uuid"`
	OK      bool             `json:"ok"`
	AuditID int64            `json:"auditId,omitempty"`
	Error   *errorItem       `json:"error,omitempty"`
}

type errorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkSetStatus — POST /api/v1/bulk/status. Каждая сущность
// обрабатывается отдельной транзакцией, ошибки возвращаются поэлементно.
func (h *APIHandler) BulkSetStatus(w http.ResponseWriter, r *http.Request) {
	var req generated.BulkSetStatusJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	results, err := h.bulk.BulkSetStatus(r.Context(), actorFrom(r), refsOf(req.Entities), status.Status(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка массовой смены статуса")
		return
	}
	items := make([]bulkItemResponse, 0, len(results))
	for _, res := range results {
		item := bulkItemResponse{Type: res.Ref.Type, ID: res.Ref.ID, OK: res.Err == nil}
		switch {
		case res.Err != nil:
			_, code, known := classifyError(res.Err)
			msg := res.Err.Error()
			if !known {
				h.logger.Error("Ошибка смены статуса в пачке",
					"entity_type", res.Ref.Type, "entity_id", res.Ref.ID, "error", msg)
				msg = "Внутренняя ошибка"
			}
			item.Error = &errorItem{Code: code, Message: msg}
		case res.Result != nil:
			item.AuditID = res.Result.AuditID
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, listResponse[bulkItemResponse]{Items: items})
}

// BulkReindex — POST /api/v1/bulk/reindex.
func (h *APIHandler) BulkReindex(w http.ResponseWriter, r *http.Request) {
	var req generated.BulkReindexJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if deref(req.Force) {
		apierrors.ValidationError(w, "force допустим только для remove-from-index")
		return
	}
	ids, err := h.bulk.BulkReindex(r.Context(), refsOf(req.Entities))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка постановки переиндексации")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string][]int64{"taskIds": nonNil(ids)})
}

// BulkRemoveFromIndex — POST /api/v1/bulk/remove-from-index.
func (h *APIHandler) BulkRemoveFromIndex(w http.ResponseWriter, r *http.Request) {
	var req generated.BulkRemoveFromIndexJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	ids, err := h.bulk.BulkRemoveFromIndex(r.Context(), refsOf(req.Entities), deref(req.Force))
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка постановки удаления из индекса")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string][]int64{"taskIds": nonNil(ids)})
}

// AuditHistory — GET /api/v1/audit/{entityId}.
func (h *APIHandler) AuditHistory(w http.ResponseWriter, r *http.Request, entityId string) {
	entries, err := h.audit.History(r.Context(), entityId)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения журнала аудита")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[auditEntryResponse]{Items: mapAll(entries, mapAuditEntry)})
}

// ListFailedTasks — GET /api/v1/index-tasks/failed.
func (h *APIHandler) ListFailedTasks(w http.ResponseWriter, r *http.Request, params generated.ListFailedTasksParams) {
	limit, offset := pagination(params.Limit, params.Offset)
	tasks, err := h.sync.ListFailed(r.Context(), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения failed-задач")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[indexTaskResponse]{
		Items: mapAll(tasks, mapIndexTask), Limit: limit, Offset: offset,
	})
}

// ListEntityTasks — GET /api/v1/index-tasks?entityType=...&entityId=...
func (h *APIHandler) ListEntityTasks(w http.ResponseWriter, r *http.Request, params generated.ListEntityTasksParams) {
	ref := model.EntityRef{Type: model.EntityType(params.EntityType), ID: params.EntityId}
	if !ref.Type.Valid() || ref.ID == "" {
		apierrors.ValidationError(w, "Требуются параметры entityType (publication, document, topic) и entityId")
		return
	}
	tasks, err := h.sync.EntityTasks(r.Context(), ref)
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения задач сущности")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[indexTaskResponse]{Items: mapAll(tasks, mapIndexTask)})
}

// RetryTask — POST /api/v1/index-tasks/{id}/retry.
func (h *APIHandler) RetryTask(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.sync.Retry(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Ошибка повтора задачи")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int64{"id": id})
}

// IndexTaskStats — GET /api/v1/index-tasks/stats.
func (h *APIHandler) IndexTaskStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.sync.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "Ошибка чтения сводки очереди")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
