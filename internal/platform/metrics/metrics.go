// Package metrics defines the Prometheus instruments for the credential
// platform. All metrics are registered once at construction via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CredentialsIngested prometheus.Counter
	CredentialsRevoked  prometheus.Counter
	AnchorsConfirmed    prometheus.Counter
	AnchorsFailed       prometheus.Counter
	Verifications       *prometheus.CounterVec
	VerifyLatency       prometheus.Histogram
	VerifyRateLimited   prometheus.Counter
	ChainRevokeFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_credentials_ingested_total",
			Help: "Total number of credentials successfully ingested.",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_credentials_revoked_total",
			Help: "Total number of credentials revoked by their holder.",
		}),
		AnchorsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_anchors_confirmed_total",
			Help: "Total number of anchors confirmed on chain.",
		}),
		AnchorsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_anchors_failed_total",
			Help: "Total number of anchoring attempts that ended in the failed state.",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creerlio_verifications_total",
			Help: "Total verification attempts by verdict.",
		}, []string{"result"}),
		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creerlio_verify_duration_seconds",
			Help:    "Latency of the public verification pipeline.",
			Buckets: prometheus.DefBuckets,
		}),
		VerifyRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_verify_rate_limited_total",
			Help: "Total verification requests rejected by the rate limiter.",
		}),
		ChainRevokeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creerlio_chain_revoke_failures_total",
			Help: "Total best-effort on-chain revocations that failed.",
		}),
	}
}

// ObserveVerification records one completed verification attempt.
func (m *Metrics) ObserveVerification(result string, elapsed time.Duration) {
	m.Verifications.WithLabelValues(result).Inc()
	m.VerifyLatency.Observe(elapsed.Seconds())
}
