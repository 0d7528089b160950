// Package metrics holds the process-wide Prometheus collectors. They are
// registered with the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts stats-cache lookups. result is "hit" or "miss".
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcompass_cache_requests_total",
			Help: "Total number of stats cache lookups",
		},
		[]string{"cache", "result"},
	)

	// UpstreamRequests counts upstream provider calls after retries.
	// outcome is "success", "not_found", "rate_limited", "unavailable" or "circuit_open".
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcompass_upstream_requests_total",
			Help: "Total number of upstream provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devcompass_upstream_request_duration_seconds",
			Help:    "Duration of upstream provider calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "devcompass_circuit_breaker_state",
			Help: "Circuit breaker state per upstream provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// LedgerInserted counts solved-ledger rows actually created. path is
	// "reconcile" or "bulk_import".
	LedgerInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcompass_ledger_inserted_total",
			Help: "Total number of solved-ledger rows inserted",
		},
		[]string{"path"},
	)

	RecommendationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devcompass_recommendations_generated_total",
			Help: "Total number of recommendations returned per platform",
		},
		[]string{"platform"},
	)

	CooldownRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devcompass_cooldown_rejections_total",
			Help: "Total number of insight refreshes rejected by the cooldown gate",
		},
	)
)
