package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lavasrc/internal/mirror"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AttemptsTotal      *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	RequestsTotal      *prometheus.CounterVec
	ThrottledTotal     prometheus.Counter
}

// CacheStats is the view of the mirror cache exported as metrics.
type CacheStats interface {
	Len() int
	Stats() (hits, misses uint64)
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lavasrc_mirror_attempts_total",
				Help: "Provider templates tried, by provider source and outcome",
			},
			[]string{"source", "outcome"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lavasrc_mirror_resolutions_total",
				Help: "Total number of mirror resolutions",
			},
			[]string{"result", "cached"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lavasrc_mirror_resolution_duration_seconds",
				Help:    "Time spent resolving a mirror",
				Buckets: prometheus.DefBuckets,
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lavasrc_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"endpoint", "status"},
		),
		ThrottledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lavasrc_http_throttled_total",
				Help: "Total number of requests rejected by the floodgate",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AttemptsTotal,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.RequestsTotal,
		m.ThrottledTotal,
	)

	return m
}

// RecordAttempt implements mirror.Recorder.
func (m *Metrics) RecordAttempt(source string, outcome mirror.AttemptOutcome) {
	m.AttemptsTotal.WithLabelValues(source, string(outcome)).Inc()
}

// RecordResolution implements mirror.Recorder.
func (m *Metrics) RecordResolution(found, cached bool, elapsed time.Duration) {
	result := "not_found"
	if found {
		result = "found"
	}
	m.ResolutionsTotal.WithLabelValues(result, strconv.FormatBool(cached)).Inc()
	if !cached {
		m.ResolutionDuration.Observe(elapsed.Seconds())
	}
}

// ObserveCache exports the size and hit counters of the mirror cache.
func (m *Metrics) ObserveCache(cache CacheStats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "lavasrc_mirror_cache_entries",
				Help: "Number of cached resolutions",
			},
			func() float64 { return float64(cache.Len()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "lavasrc_mirror_cache_hits_total",
				Help: "Total number of cache hits",
			},
			func() float64 {
				hits, _ := cache.Stats()
				return float64(hits)
			},
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "lavasrc_mirror_cache_misses_total",
				Help: "Total number of cache misses",
			},
			func() float64 {
				_, misses := cache.Stats()
				return float64(misses)
			},
		),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ mirror.Recorder = (*Metrics)(nil)
