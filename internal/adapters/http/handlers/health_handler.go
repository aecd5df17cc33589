// Package handlers - Health check handlers.
//
// Два типа health checks:
// - Liveness (/health): процесс работает
// - Readiness (/ready): зависимости доступны, можно принимать трафик
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

// ============================================
// Health Check Handler
// ============================================

// Pinger - зависимость, доступность которой проверяет /ready.
// *pgxpool.Pool удовлетворяет этому интерфейсу.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы.
type HealthHandler struct {
	db        Pinger
	stats     func() any
	version   string
	buildTime string
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler создаёт новый HealthHandler. db может быть nil
// (database.driver=memory).
func NewHealthHandler(db Pinger, version, buildTime string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
		timeout:   2 * time.Second,
	}
}

// WithStats добавляет в /ready статистику пула соединений.
func (h *HealthHandler) WithStats(stats func() any) *HealthHandler {
	h.stats = stats
	return h
}

// ============================================
// Response Types
// ============================================

// HealthResponse - ответ health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	BuildTime string    `json:"buildTime"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse - ответ readiness check.
type ReadinessResponse struct {
	Ready     bool              `json:"ready"`
	Checks    map[string]string `json:"checks"`
	Pool      any               `json:"pool,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Routes - маршруты health handler для adapter.
func (h *HealthHandler) Routes() (health, ready common.Routes) {
	return common.Routes{common.MethodGet: h.Health, common.MethodHead: h.Health},
		common.Routes{common.MethodGet: h.Ready}
}

// ============================================
// Handlers
// ============================================

// Health возвращает базовый health статус.
func (h *HealthHandler) Health(ctx context.Context, req *common.Request) (common.Result, error) {
	return common.OK(HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		BuildTime: h.buildTime,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}), nil
}

// Ready проверяет готовность приложения. 503 если БД недоступна.
func (h *HealthHandler) Ready(ctx context.Context, req *common.Request) (common.Result, error) {
	checks := make(map[string]string)
	ready := true

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()

		if err := h.db.Ping(pingCtx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			ready = false
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	resp := ReadinessResponse{
		Ready:     ready,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
	if h.stats != nil {
		resp.Pool = h.stats()
	}

	if !ready {
		// 4xx/5xx отдаются только в ErrorEnvelope.
		return common.FailWithDetails(http.StatusServiceUnavailable, "Service unavailable", checks["database"]), nil
	}

	return common.OK(resp), nil
}
