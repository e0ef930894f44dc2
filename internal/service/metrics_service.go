package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/infopanel-api/internal/models"
)

// Import run results used as metric labels.
const (
	ImportResultSuccess     = "success"
	ImportResultReadFailed  = "read_failed"
	ImportResultParseFailed = "parse_failed"
	ImportResultStoreFailed = "store_failed"
	ImportResultCancelled   = "cancelled"
)

const (
	importRowsParsed  = "parsed"
	importRowsCreated = "created"
	importRowsSkipped = "skipped"
	importRowsDeleted = "deleted"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	importRuns        *prometheus.CounterVec
	importRows        *prometheus.CounterVec
	importDuration    prometheus.Histogram
	importLastSuccess prometheus.Gauge
	nextRefresh       prometheus.Gauge
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	importRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "event_import_runs_total",
		Help: "Timetable import runs by result",
	}, []string{"trigger", "result"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "event_import_rows_total",
		Help: "Timetable rows handled by the import, by outcome",
	}, []string{"outcome"})

	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_import_duration_seconds",
		Help:    "Duration of timetable import runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	importLastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "event_import_last_success_timestamp_seconds",
		Help: "Unix time of the last successful import",
	})

	nextRefresh := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "event_import_next_refresh_timestamp_seconds",
		Help: "Unix time of the next scheduled import",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		importRuns, importRows, importDuration, importLastSuccess, nextRefresh, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		importRuns:        importRuns,
		importRows:        importRows,
		importDuration:    importDuration,
		importLastSuccess: importLastSuccess,
		nextRefresh:       nextRefresh,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveImport records the outcome of one import run.
func (m *MetricsService) ObserveImport(trigger, result string, summary models.ImportSummary, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.importRuns.WithLabelValues(trigger, result).Inc()
	m.importDuration.Observe(duration.Seconds())
	m.importRows.WithLabelValues(importRowsParsed).Add(float64(summary.ParsedCount))
	m.importRows.WithLabelValues(importRowsCreated).Add(float64(summary.CreatedCount))
	m.importRows.WithLabelValues(importRowsSkipped).Add(float64(summary.SkippedCount))
	m.importRows.WithLabelValues(importRowsDeleted).Add(float64(summary.DeletedCount))
	if summary.Success {
		m.importLastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// SetNextRefresh publishes the next scheduled import time.
func (m *MetricsService) SetNextRefresh(at time.Time) {
	if m == nil {
		return
	}
	m.nextRefresh.Set(float64(at.Unix()))
}
