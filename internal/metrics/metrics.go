package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cinehub"

// Metrics holds Prometheus metrics for the service
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	Votes            *prometheus.CounterVec
	Comments         *prometheus.CounterVec
	StoreConflicts   *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	EventsDropped    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg. Passing a fresh registry keeps tests
// independent of the global default registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		Votes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Votes applied to playlists and threads",
			},
			[]string{"collection", "value"},
		),
		Comments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comments_total",
				Help:      "Comments created",
			},
			[]string{"collection"},
		),
		StoreConflicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "conflicts_total",
				Help:      "Optimistic version conflicts while saving a collection",
			},
			[]string{"collection"},
		),
		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Events handed to publishers",
			},
			[]string{"type"},
		),
		EventsDropped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Events dropped because the dispatch queue was full",
			},
		),
		gatherer: reg,
	}
}

// NewNop returns metrics backed by a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ConflictHook returns a callback counting store conflicts per collection.
func (m *Metrics) ConflictHook() func(collection string) {
	return func(collection string) {
		m.StoreConflicts.WithLabelValues(collection).Inc()
	}
}
