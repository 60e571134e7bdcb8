// Package observability exposes Prometheus metrics for the geocoding engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the engine.
type Metrics struct {
	GeocodeRequests *prometheus.CounterVec // labels: outcome={resolved,failed}
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss}
	RunsTotal       prometheus.Counter
	MarkersBuilt    prometheus.Gauge
	GeocodeEnabled  prometheus.Gauge
}

// NewMetrics creates the engine metrics against the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a private registry
// so parallel tests don't collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parksafe",
			Name:      "geocode_requests_total",
			Help:      "External geocoding resolutions by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parksafe",
			Name:      "geocode_cache_lookups_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parksafe",
			Name:      "runs_total",
			Help:      "Completed geocoding runs.",
		}),
		MarkersBuilt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parksafe",
			Name:      "markers_built",
			Help:      "Markers produced by the most recent run.",
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parksafe",
			Name:      "geocode_enabled",
			Help:      "1 when the external geocoding provider is configured.",
		}),
	}

	reg.MustRegister(
		m.GeocodeRequests,
		m.CacheLookups,
		m.RunsTotal,
		m.MarkersBuilt,
		m.GeocodeEnabled,
	)
	return m
}

// Nop returns metrics bound to a throwaway registry, for callers that do not
// export metrics (CLI one-shots, tests).
func Nop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
