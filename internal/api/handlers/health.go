// health.go — health endpoints Publication Engine.
// /health/live — процесс жив
// /health/ready — PostgreSQL доступен; внешние зависимости и очередь индекса
// влияют только на degraded
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/woo-publications/internal/config"
	"github.com/bigkaa/woo-publications/internal/domain/model"
)

const serviceName = "publication-engine"

// ReadinessChecker — проверка готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// DependencyReporter — последние результаты фоновых проверок зависимостей.
type DependencyReporter interface {
	Health() map[string]bool
}

// QueueReporter — сводка очереди синхронизации индекса.
type QueueReporter interface {
	Stats(ctx context.Context) (model.IndexTaskStats, error)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	pgChecker   ReadinessChecker
	deps        DependencyReporter
	queue       QueueReporter
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps и queue могут быть nil.
func NewHealthHandler(pgChecker ReadinessChecker, deps DependencyReporter, queue QueueReporter) *HealthHandler {
	return &HealthHandler{
		pgChecker:   pgChecker,
		deps:        deps,
		queue:       queue,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks,omitempty"`
}

// HealthLive — проверка живости процесса.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — проверка готовности. 503 только при недоступном PostgreSQL.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    map[string]healthCheckResult{},
	}

	pg := healthCheckResult{Status: "fail", Message: "не инициализирован"}
	if h.pgChecker != nil {
		st, msg := h.pgChecker.CheckReady()
		pg = healthCheckResult{Status: st, Message: msg}
	}
	resp.Checks["postgresql"] = pg

	if h.deps != nil {
		health := h.deps.Health()
		names := make([]string, 0, len(health))
		for name := range health {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if health[name] {
				resp.Checks[name] = healthCheckResult{Status: "ok"}
			} else {
				resp.Checks[name] = healthCheckResult{Status: "degraded", Message: "зависимость недоступна"}
				resp.Status = "degraded"
			}
		}
	}

	if h.queue != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		st, err := h.queue.Stats(ctx)
		cancel()
		switch {
		case err != nil:
			resp.Checks["index_sync"] = healthCheckResult{Status: "degraded", Message: err.Error()}
			resp.Status = "degraded"
		case st.Failed > 0:
			resp.Checks["index_sync"] = healthCheckResult{Status: "degraded", Message: "есть failed-задачи синхронизации"}
			resp.Status = "degraded"
		default:
			resp.Checks["index_sync"] = healthCheckResult{Status: "ok"}
		}
	}

	code := http.StatusOK
	if pg.Status != "ok" {
		resp.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
