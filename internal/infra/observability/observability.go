// Package observability exposes Prometheus metrics for the generation
// gateway: request counts by kind and outcome, credits settled, and
// provider dispatch latency. Metrics are registered once at package load
// and served on /metrics when enabled in config.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Gateway Metrics ────────────────────────────────────────────────────────

var (
	// GenerationRequests counts generation requests by kind and final
	// outcome ("success", "unauthorized", "insufficient_credits",
	// "provider_error", "invalid_input", "internal_error").
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reminisce",
		Name:      "generation_requests_total",
		Help:      "Generation requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	// CreditsSpent counts credits debited by successful generations.
	CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reminisce",
		Name:      "credits_spent_total",
		Help:      "Credits debited for successful generations.",
	})

	// CreditsPurchased counts credits added via buy_credits.
	CreditsPurchased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reminisce",
		Name:      "credits_purchased_total",
		Help:      "Credits added through purchases.",
	})

	// DispatchLatency observes wall time of the provider call per kind.
	// Buckets stretch to minutes: the soundscape path chains two calls.
	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reminisce",
		Name:      "provider_dispatch_seconds",
		Help:      "Provider call latency by generation kind.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90, 120, 180},
	}, []string{"kind"})
)

// ObserveDispatch records one provider call.
func ObserveDispatch(kind string, d time.Duration) {
	DispatchLatency.WithLabelValues(kind).Observe(d.Seconds())
}
