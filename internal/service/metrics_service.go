package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-sa-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// searches, result retention and the audit database.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	searchTotal     *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	searchBestCost  *prometheus.HistogramVec
	searchClamped   *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	jobsInFlight    prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	searchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_searches_total",
		Help: "Annealing runs by variant and outcome",
	}, []string{"variant", "outcome"})

	searchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_search_duration_seconds",
		Help:    "Wall time of annealing runs",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"variant"})

	searchBestCost := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_search_best_cost",
		Help:    "Best cost reached by completed runs",
		Buckets: []float64{0, 50, 200, 500, 900, 1800, 3600, 7200, 14400},
	}, []string{"variant"})

	searchClamped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_search_clamped_acceptances_total",
		Help: "Worsening moves refused because the temperature underflowed",
	}, []string{"variant"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "result_cache_latency_seconds",
		Help:    "Latency for result cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "result_cache_write_seconds",
		Help:    "Latency for result cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "result_cache_lookups_total",
		Help: "Result cache lookups by outcome",
	}, []string{"outcome"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of audit database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	jobsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_jobs_in_flight",
		Help: "Asynchronous searches currently running",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, searchTotal, searchDuration, searchBestCost, searchClamped,
		cacheLatency, cacheWrite, cacheLookups, dbQueryDuration, jobsInFlight, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		searchTotal:     searchTotal,
		searchDuration:  searchDuration,
		searchBestCost:  searchBestCost,
		searchClamped:   searchClamped,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		dbQueryDuration: dbQueryDuration,
		jobsInFlight:    jobsInFlight,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSearch records how a run ended. bestCost and clamped are only
// meaningful when outcome is "completed".
func (m *MetricsService) ObserveSearch(variant models.SearchVariant, outcome string, duration time.Duration, bestCost float64, clamped int) {
	if m == nil {
		return
	}
	v := string(variant)
	m.searchTotal.WithLabelValues(v, outcome).Inc()
	m.searchDuration.WithLabelValues(v).Observe(duration.Seconds())
	if outcome == searchOutcomeCompleted {
		m.searchBestCost.WithLabelValues(v).Observe(bestCost)
		if clamped > 0 {
			m.searchClamped.WithLabelValues(v).Add(float64(clamped))
		}
	}
}

// JobStarted and JobFinished bracket an asynchronous search.
func (m *MetricsService) JobStarted() {
	if m != nil {
		m.jobsInFlight.Inc()
	}
}

func (m *MetricsService) JobFinished() {
	if m != nil {
		m.jobsInFlight.Dec()
	}
}

// RecordCacheOperation records a result cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
