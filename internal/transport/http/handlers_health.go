package httptransport

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/redis"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/platform/httputil"
)

// HealthHandler reports liveness of the service's backing stores.
type HealthHandler struct {
	db    *sql.DB
	redis *redis.Client // nil when Redis is not configured
}

func NewHealthHandler(db *sql.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// HandleHealthz handles GET /healthz. Degraded dependencies produce a 503
// with per-dependency detail.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	httputil.WriteJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}
