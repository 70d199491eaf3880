package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for the long-running feed server. Lambda deployments
// report through EMF instead; these are registered only when MustRegister is
// called.
var (
	PassesStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandfeed",
		Name:      "passes_started_total",
		Help:      "Feed passes computed, by kind (cold or warm).",
	}, []string{"kind"})

	ManifestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandfeed",
		Name:      "manifest_failures_total",
		Help:      "Manifests that resolved to no media, by scope and reason.",
	}, []string{"scope", "reason"})

	StaleResultsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brandfeed",
		Name:      "stale_media_results_total",
		Help:      "Media resolutions discarded because their brand left the current pass.",
	})

	Activations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brandfeed",
		Name:      "media_activations_total",
		Help:      "Media handles made the single active playing element.",
	})

	EngagementWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandfeed",
		Name:      "engagement_writes_total",
		Help:      "Save/like writes by action and outcome (ok, error, or local for anonymous sessions).",
	}, []string{"action", "outcome"})

	LingerSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "brandfeed",
		Name:      "linger_seconds",
		Help:      "Dwell time per brand visit.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brandfeed",
		Name:      "active_sessions",
		Help:      "Feed sessions currently held by the API.",
	})
)

// MustRegister registers every feed collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		PassesStarted,
		ManifestFailures,
		StaleResultsDropped,
		Activations,
		EngagementWrites,
		LingerSeconds,
		ActiveSessions,
	)
}
