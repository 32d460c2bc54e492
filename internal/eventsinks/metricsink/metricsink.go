// Package metricsink implements a Prometheus Event Bus subscriber,
// grounded in the teacher's internal/rotation/notifications.InitMetrics
// promauto idiom. Unlike the teacher's package-level sync.Once singleton,
// Sink takes its prometheus.Registerer as a constructor argument so tests
// and multiple Facades in one process can each use an isolated registry.
package metricsink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/secretaccess/pkg/eventbus"
)

const namespace = "secretaccess"

// Sink counts refreshes, rollovers, and cache outcomes, subscribed to the
// Event Bus. Cache hit/miss has no corresponding event kind yet — call
// RecordCacheHit/RecordCacheMiss directly from the Cache's call site
// (pkg/secretcache) if that wiring is added.
type Sink struct {
	refreshesTotal *prometheus.CounterVec
	rolloversTotal prometheus.Counter
	cacheHitsTotal prometheus.Counter
	cacheMissTotal prometheus.Counter
}

// New registers Sink's metrics with reg and returns the Sink.
func New(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)
	return &Sink{
		refreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Total number of successful secret refreshes, partitioned by whether the value changed.",
		}, []string{"outcome"}),
		rolloversTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollovers_detected_total",
			Help:      "Total number of version rollovers detected across all registered references.",
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of Cache.Get calls that returned a fresh entry.",
		}),
		cacheMissTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of Cache.Get calls that found no fresh entry.",
		}),
	}
}

// Handler returns the eventbus.Handler to subscribe with
// bus.Subscribe(eventbus.KindAny, sink.Handler()).
func (s *Sink) Handler() eventbus.Handler {
	return func(e eventbus.Event) {
		switch ev := e.(type) {
		case eventbus.SecretRefreshed:
			outcome := "unchanged"
			if ev.ValueChanged {
				outcome = "changed"
			}
			s.refreshesTotal.WithLabelValues(outcome).Inc()
		case eventbus.SecretRolloverDetected:
			s.rolloversTotal.Inc()
		}
	}
}

// RecordCacheHit increments the cache-hit counter.
func (s *Sink) RecordCacheHit() { s.cacheHitsTotal.Inc() }

// RecordCacheMiss increments the cache-miss counter.
func (s *Sink) RecordCacheMiss() { s.cacheMissTotal.Inc() }
