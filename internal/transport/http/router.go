// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/metrics"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/middleware"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/ratelimit"
)

// RouterConfig carries everything the router needs to assemble the endpoint
// tree. Optional fields (limiter, metrics) may be nil.
type RouterConfig struct {
	Logger      *slog.Logger
	Validator   middleware.JWTValidator
	Limiter     ratelimit.Limiter
	Metrics     *metrics.Metrics
	Publisher   *audit.Publisher
	Credentials *CredentialHandler
	Anchors     *AnchorHandler
	Verify      *VerifyHandler
	Files       *FileHandler
	Health      *HealthHandler
}

// NewRouter wires all endpoints behind the shared middleware chain.
// Verification and file reads are public; credential lifecycle routes require
// a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Metadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", cfg.Health.HandleHealthz)

	r.Group(func(pub chi.Router) {
		pub.Use(ratelimit.Middleware(cfg.Limiter, cfg.Publisher, cfg.Metrics, cfg.Logger))
		pub.Get("/verify/{token}", cfg.Verify.HandleVerify)
	})
	r.Get("/files/*", cfg.Files.HandleRead)

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		cfg.Credentials.Register(auth)
		cfg.Anchors.Register(auth)
	})

	return r
}
