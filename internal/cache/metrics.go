package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by entry kind and result (hit, miss, error).",
		},
		[]string{"kind", "result"},
	)

	computesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_computes_total",
			Help: "Cache computations by entry kind and outcome (stored, skipped, store_error, error).",
		},
		[]string{"kind", "outcome"},
	)

	computeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_compute_duration_seconds",
			Help:    "Time spent computing a cache entry on a miss.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Tags invalidated, by tag kind.",
		},
		[]string{"kind"},
	)

	invalidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_invalidation_failures_total",
			Help: "Invalidation requests that failed to evict from the store.",
		},
	)
)

// kindOf reduces a key or tag to its prefix to keep label cardinality bounded.
func kindOf(s string) string {
	kind, _, _ := strings.Cut(s, ":")
	return kind
}
