package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/attendance-engine/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for dashboard consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	eventsIngested    *prometheus.CounterVec
	eventsDuplicate   prometheus.Counter
	eventsRejected    prometheus.Counter
	eventsInvalidated prometheus.Counter
	reconcileDuration prometheus.Observer
	rebuildDuration   prometheus.Observer
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	dbQueryDuration   *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	ingestedCount        uint64
	duplicateCount       uint64
	rejectedCount        uint64
	invalidatedCount     uint64
	reconcileCount       uint64
	rebuildCount         uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	eventsIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_events_ingested_total",
		Help: "Logical attendance events accepted into the store",
	}, []string{"source"})

	eventsDuplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_events_duplicate_total",
		Help: "Appends collapsed onto an existing event by the dedup window",
	})

	eventsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_events_rejected_total",
		Help: "Appends rejected at validation",
	})

	eventsInvalidated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_events_invalidated_total",
		Help: "Events soft-invalidated by corrections",
	})

	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_reconcile_duration_seconds",
		Help:    "Duration of single person-day reconciliations",
		Buckets: prometheus.DefBuckets,
	})

	rebuildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_aggregate_rebuild_duration_seconds",
		Help:    "Duration of division-day aggregate rebuilds",
		Buckets: prometheus.DefBuckets,
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, eventsIngested, eventsDuplicate,
		eventsRejected, eventsInvalidated, reconcileDuration, rebuildDuration,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		eventsIngested:    eventsIngested,
		eventsDuplicate:   eventsDuplicate,
		eventsRejected:    eventsRejected,
		eventsInvalidated: eventsInvalidated,
		reconcileDuration: reconcileDuration,
		rebuildDuration:   rebuildDuration,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordEventIngested counts an accepted logical event by source.
func (m *MetricsService) RecordEventIngested(source models.EventSource) {
	if m == nil {
		return
	}
	m.eventsIngested.WithLabelValues(string(source)).Inc()
	atomic.AddUint64(&m.ingestedCount, 1)
}

// RecordEventDuplicate counts an append collapsed by the dedup window.
func (m *MetricsService) RecordEventDuplicate() {
	if m == nil {
		return
	}
	m.eventsDuplicate.Inc()
	atomic.AddUint64(&m.duplicateCount, 1)
}

// RecordEventRejected counts an append rejected at validation.
func (m *MetricsService) RecordEventRejected() {
	if m == nil {
		return
	}
	m.eventsRejected.Inc()
	atomic.AddUint64(&m.rejectedCount, 1)
}

// RecordEventInvalidated counts a soft-invalidated event.
func (m *MetricsService) RecordEventInvalidated() {
	if m == nil {
		return
	}
	m.eventsInvalidated.Inc()
	atomic.AddUint64(&m.invalidatedCount, 1)
}

// ObserveReconcile records the duration of a person-day reconciliation.
func (m *MetricsService) ObserveReconcile(duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.reconcileCount, 1)
}

// ObserveAggregateRebuild records the duration of a division-day fold.
func (m *MetricsService) ObserveAggregateRebuild(duration time.Duration) {
	if m == nil {
		return
	}
	m.rebuildDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.rebuildCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
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

// CacheHits returns the lifetime cache hit count.
func (m *MetricsService) CacheHits() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.cacheHitCount)
}

// Snapshot returns aggregated metrics suitable for dashboard endpoints.
func (m *MetricsService) Snapshot() models.EngineMetrics {
	if m == nil {
		return models.EngineMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.EngineMetrics{
		EventsIngested:           atomic.LoadUint64(&m.ingestedCount),
		DuplicatesCollapsed:      atomic.LoadUint64(&m.duplicateCount),
		EventsRejected:           atomic.LoadUint64(&m.rejectedCount),
		EventsInvalidated:        atomic.LoadUint64(&m.invalidatedCount),
		Reconciliations:          atomic.LoadUint64(&m.reconcileCount),
		AggregateRebuilds:        atomic.LoadUint64(&m.rebuildCount),
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
