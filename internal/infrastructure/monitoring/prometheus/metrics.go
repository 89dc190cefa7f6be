// Package prometheus exposes the platform's operational metrics.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the platform records.  Collectors are
// registered once on the registry passed to New.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	MatchRuns     *prometheus.CounterVec
	MatchScores   prometheus.Histogram
	RegistryCalls *prometheus.CounterVec
	SyncedTrials  prometheus.Counter
	IntakeTotal   *prometheus.CounterVec
}

// New builds a Metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trialsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		MatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialsync",
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Batch match runs by direction and outcome.",
		}, []string{"direction", "outcome"}),
		MatchScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trialsync",
			Subsystem: "matching",
			Name:      "score",
			Help:      "Distribution of computed match scores.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		RegistryCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialsync",
			Subsystem: "registry",
			Name:      "requests_total",
			Help:      "Registry API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		SyncedTrials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trialsync",
			Subsystem: "registry",
			Name:      "synced_trials_total",
			Help:      "Trials imported or refreshed from the registry.",
		}),
		IntakeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trialsync",
			Subsystem: "intake",
			Name:      "profiles_total",
			Help:      "Extracted patient profiles by confidence.",
		}, []string{"confidence"}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
