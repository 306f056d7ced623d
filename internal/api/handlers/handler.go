// handler.go — обработчики HTTP API Publication Engine.
// Декодируют запросы, вызывают сервисный слой и отображают
// ошибки сервиса в единый формат ответа.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/woo-publications/internal/api/errors"
	"github.com/bigkaa/woo-publications/internal/api/generated"
	"github.com/bigkaa/woo-publications/internal/api/middleware"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/service"
)

// maxJSONBody — предел размера JSON-тела запроса.
const maxJSONBody = 1 << 20

var _ generated.ServerInterface = (*APIHandler)(nil)

// APIHandler объединяет сервисы, которые вызывает HTTP API.
type APIHandler struct {
	health    *HealthHandler
	lifecycle *service.LifecycleService
	uploads   *service.UploadService
	retention *service.RetentionService
	ownership *service.OwnershipService
	bulk      *service.BulkService
	audit     *service.AuditService
	sync      *service.IndexSynchronizer
	logger    *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	lifecycle *service.LifecycleService,
	uploads *service.UploadService,
	retention *service.RetentionService,
	ownership *service.OwnershipService,
	bulk *service.BulkService,
	audit *service.AuditService,
	sync *service.IndexSynchronizer,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		lifecycle: lifecycle,
		uploads:   uploads,
		retention: retention,
		ownership: ownership,
		bulk:      bulk,
		audit:     audit,
		sync:      sync,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health ---

// HealthLive — GET /health/live.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		http.NotFound(w, r)
		return
	}
	h.health.HealthLive(w, r)
}

// HealthReady — GET /health/ready.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		http.NotFound(w, r)
		return
	}
	h.health.HealthReady(w, r)
}

// GetMetrics — GET /metrics.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		http.NotFound(w, r)
		return
	}
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst. Неизвестные поля отклоняются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Некорректное тело запроса"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("Некорректное тело запроса: %v", err)
		}
		apierrors.ValidationError(w, msg)
		return false
	}
	return true
}

// actorFrom возвращает инициатора запроса. ActorMiddleware гарантирует
// его наличие на маршрутах /api/v1.
func actorFrom(r *http.Request) model.Actor {
	a, _ := middleware.ActorFromContext(r.Context())
	return a
}

// pagination нормализует limit (1..1000, по умолчанию 100) и offset.
func pagination(limit, offset *int) (int, int) {
	l, o := 100, 0
	if limit != nil {
		l = min(max(*limit, 1), 1000)
	}
	if offset != nil {
		o = max(*offset, 0)
	}
	return l, o
}

// ParamErrorHandler — ErrorHandlerFunc для generated: ошибки разбора
// path- и query-параметров отдаются в едином формате.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var invalid *generated.InvalidParamFormatError
	var required *generated.RequiredParamError
	switch {
	case errors.As(err, &invalid):
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный параметр %s", invalid.ParamName))
	case errors.As(err, &required):
		apierrors.ValidationError(w, fmt.Sprintf("Параметр %s обязателен", required.ParamName))
	default:
		apierrors.ValidationError(w, err.Error())
	}
}

// classifyError возвращает HTTP-статус и код ошибки сервиса.
// known=false — ошибка не относится к бизнес-логике.
func classifyError(err error) (status int, code string, known bool) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, apierrors.CodeNotFound, true
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, apierrors.CodeValidationError, true
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, apierrors.CodeInvalidTransition, true
	case errors.Is(err, service.ErrUploadIncomplete):
		return http.StatusConflict, apierrors.CodeUploadIncomplete, true
	case errors.Is(err, service.ErrIncompleteRanges):
		return http.StatusConflict, apierrors.CodeIncompleteRanges, true
	case errors.Is(err, service.ErrUploadExpired):
		return http.StatusGone, apierrors.CodeUploadExpired, true
	case errors.Is(err, service.ErrDocumentAlreadyComplete):
		return http.StatusConflict, apierrors.CodeDocumentAlreadyComplete, true
	case errors.Is(err, service.ErrExternalServiceUnavailable):
		return http.StatusBadGateway, apierrors.CodeExternalUnavailable, true
	case errors.Is(err, service.ErrIndexSyncExhausted):
		return http.StatusConflict, apierrors.CodeIndexSyncExhausted, true
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, apierrors.CodeConflict, true
	default:
		return http.StatusInternalServerError, apierrors.CodeInternalError, false
	}
}

// writeServiceError отображает ошибку сервиса в HTTP-ответ.
// Неизвестные ошибки логируются и отдаются как 500 без подробностей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, code, known := classifyError(err)
	if known {
		apierrors.WriteError(w, status, code, err.Error())
		return
	}
	h.logger.Error(op,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, op)
}
