package http

import (
	"context"
	"net/http"
	"time"

	"shawty-backend/internal/analytics"

	"go.uber.org/zap"
)

// Check проверка зависимости; nil означает, что зависимость отключена
type Check func(ctx context.Context) error

// StatsProvider источник статистики обработчика аналитики
type StatsProvider interface {
	Stats() analytics.Stats
}

// HealthHandler обработчик health checks
type HealthHandler struct {
	database  Check
	redis     Check
	processor StatsProvider
	version   string
	log       *zap.Logger
}

// NewHealthHandler создает новый health handler
func NewHealthHandler(database, redis Check, processor StatsProvider, version string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		database:  database,
		redis:     redis,
		processor: processor,
		version:   version,
		log:       log,
	}
}

// HealthResponse структура ответа health check
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	DatabaseStatus string    `json:"database_status"`
	Uptime         string    `json:"uptime,omitempty"`
}

// ReadyResponse структура ответа readiness probe
type ReadyResponse struct {
	Status         string           `json:"status"`
	Timestamp      time.Time        `json:"timestamp"`
	DatabaseStatus string           `json:"database_status"`
	RedisStatus    string           `json:"redis_status"`
	Analytics      *analytics.Stats `json:"analytics,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

var startTime = time.Now()

// Health основной health check endpoint
//
//	@Summary	Liveness probe
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := h.probe(ctx, "database", h.database)

	status := statusHealthy
	statusCode := http.StatusOK
	if dbStatus == statusUnhealthy {
		status = statusUnhealthy
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		Version:        h.version,
		DatabaseStatus: dbStatus,
		Uptime:         time.Since(startTime).String(),
	}, statusCode)
}

// Ready готовность принимать трафик: хранилище, redis и воркеры аналитики
//
//	@Summary	Readiness probe
//	@Tags		Health
//	@Produce	json
//	@Success	200	{object}	ReadyResponse
//	@Failure	503	{object}	ReadyResponse
//	@Router		/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := ReadyResponse{
		Status:         "ready",
		Timestamp:      time.Now(),
		DatabaseStatus: h.probe(ctx, "database", h.database),
		RedisStatus:    h.probe(ctx, "redis", h.redis),
	}
	if h.processor != nil {
		stats := h.processor.Stats()
		response.Analytics = &stats
	}

	statusCode := http.StatusOK
	// Redis деградирует до промахов кэша, поэтому готовность не блокирует
	if response.DatabaseStatus == statusUnhealthy || (response.Analytics != nil && !response.Analytics.Started) {
		response.Status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, response, statusCode)
}

func (h *HealthHandler) probe(ctx context.Context, name string, check Check) string {
	if check == nil {
		return statusDisabled
	}
	if err := check(ctx); err != nil {
		h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
		return statusUnhealthy
	}
	return statusHealthy
}
