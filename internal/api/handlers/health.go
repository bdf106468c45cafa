package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/divbt/backend/internal/store"
	"github.com/wonny/divbt/backend/pkg/redis"
)

// HealthHandler reports store and cache reachability
type HealthHandler struct {
	store store.Store
	redis *redis.Client
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s store.Store, rc *redis.Client) *HealthHandler {
	return &HealthHandler{store: s, redis: rc}
}

// Check returns 200 when every dependency answers, 503 otherwise
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Service: "divbt-api",
		Checks:  map[string]string{},
	}

	resp.Checks["store"] = "ok"
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["store"] = err.Error()
	}

	switch {
	case !h.redis.Enabled():
		resp.Checks["redis"] = "disabled"
	case h.redis.Ping(ctx) != nil:
		resp.Status = "degraded"
		resp.Checks["redis"] = "unreachable"
	default:
		resp.Checks["redis"] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
