package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the local authority. Pass to
// NewLocalAuthority; a nil Metrics disables recording.
type Metrics struct {
	DecisionsTotal        *prometheus.CounterVec
	RegistryRebuildsTotal prometheus.Counter
	AuthorizationStores   prometheus.Gauge
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pkla",
				Name:      "decisions_total",
				Help:      "Total authorization decisions by final verdict",
			},
			[]string{"verdict"}, // verdict=yes/no/auth_self/.../unknown
		),
		RegistryRebuildsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "pkla",
				Name:      "registry_rebuilds_total",
				Help:      "Total authorization store registry rebuilds",
			},
		),
		AuthorizationStores: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pkla",
				Name:      "authorization_stores",
				Help:      "Number of discovered authorization stores",
			},
		),
		CacheHitsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "pkla",
				Name:      "decision_cache_hits_total",
				Help:      "Total decision cache hits",
			},
		),
		CacheMissesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "pkla",
				Name:      "decision_cache_misses_total",
				Help:      "Total decision cache misses",
			},
		),
	}
}
