// Package metrics holds the process-wide Prometheus registry (spec.md §5
// "a connection counter and metric registry", shared read-only across
// connection tasks once constructed).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter/histogram the state machine and server
// loop touch. It is constructed once at process start and never mutated
// except through the metric objects' own concurrency-safe methods.
type Registry struct {
	reg *prometheus.Registry

	ConnectionsTotal  prometheus.Counter
	AuthFailuresTotal prometheus.Counter
	TransfersTotal    prometheus.Counter
	DisconnectsTotal  *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
	LoginDuration     prometheus.Histogram
	ActiveConnections prometheus.Gauge
}

// New builds a Registry and registers every metric against a fresh
// prometheus.Registry (rather than the global DefaultRegisterer) so tests
// can construct independent instances without collector collisions.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "passage_connections_total",
			Help: "Total TCP connections accepted.",
		}),
		AuthFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "passage_auth_failures_total",
			Help: "Total logins that failed identity-provider verification.",
		}),
		TransfersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "passage_transfers_total",
			Help: "Total connections that completed a Transfer.",
		}),
		DisconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_disconnects_total",
			Help: "Total connections ended with a localized disconnect, labeled by reason key.",
		}, []string{"reason"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "passage_rate_limited_total",
			Help: "Total connections rejected by the per-IP rate limiter.",
		}),
		LoginDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "passage_login_duration_seconds",
			Help:    "Wall-clock time from accept to Transfer or terminal Disconnect.",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passage_active_connections",
			Help: "Connections currently in flight.",
		}),
	}
}

// Gatherer exposes the underlying registry for the metrics HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
