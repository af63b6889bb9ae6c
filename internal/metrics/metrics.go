package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	invalidations      *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	factory := promauto.With(registry)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pendataan_submission_transitions_total",
			Help: "Submission status transitions by target status and outcome",
		}, []string{"to", "result"}),
		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pendataan_validation_failures_total",
			Help: "Rejected submission payloads by validation profile",
		}, []string{"profile"}),
		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pendataan_cache_invalidations_total",
			Help: "Cache partitions invalidated by outcome",
		}, []string{"result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pendataan_cache_lookups_total",
			Help: "Cache reads by result",
		}, []string{"result"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pendataan_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Transition(to string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, result(err)).Inc()
}

func (m *Metrics) ValidationFailed(profile string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(profile).Inc()
}

func (m *Metrics) Invalidated(tags int, err error) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(result(err)).Add(float64(tags))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheLookups.WithLabelValues(label).Inc()
}

func (m *Metrics) Request(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
