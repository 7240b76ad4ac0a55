package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Replication outcomes used as metric labels.
const (
	replicationOutcomeApplied  = "applied"
	replicationOutcomeConflict = "conflict"
	replicationOutcomeDryRun   = "dry_run"
)

// MetricsService owns the Prometheus registry and keeps plain counters for JSON snapshots.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	cacheLatency        prometheus.Histogram
	replications        *prometheus.CounterVec
	replicationDuration prometheus.Histogram
	replicasCreated     prometheus.Counter
	conflictRows        *prometheus.CounterVec
	substitutions       *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	replicationsApplied  uint64
	replicationsRejected uint64
	replicaCount         uint64
	substitutionCount    uint64
	freeSubstitutions    uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hour_slot_cache_lookups_total",
			Help: "Hour slot cache lookups by result",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hour_slot_cache_latency_seconds",
			Help:    "Latency of hour slot cache reads",
			Buckets: prometheus.DefBuckets,
		}),
		replications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_replications_total",
			Help: "Week replications by outcome",
		}, []string{"outcome"}),
		replicationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_replication_duration_seconds",
			Help:    "Time spent classifying and replicating a week",
			Buckets: prometheus.DefBuckets,
		}),
		replicasCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_replicas_created_total",
			Help: "Assignments inserted by week replication",
		}),
		conflictRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_conflicts_total",
			Help: "Conflicting assignments reported by kind",
		}, []string{"kind"}),
		substitutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_substitutions_total",
			Help: "Applied substitutions by kind",
		}, []string{"kind"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.cacheLookups,
		m.cacheLatency,
		m.replications,
		m.replicationDuration,
		m.replicasCreated,
		m.conflictRows,
		m.substitutions,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return m
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveReplication records the outcome of a replication or dry run.
func (m *MetricsService) ObserveReplication(result models.ReplicationResult, duration time.Duration) {
	if m == nil {
		return
	}
	m.replicationDuration.Observe(duration.Seconds())
	m.conflictRows.WithLabelValues("teacher").Add(float64(len(result.Conflicts.TeacherConflicts)))
	m.conflictRows.WithLabelValues("course").Add(float64(len(result.Conflicts.CourseConflicts)))
	m.conflictRows.WithLabelValues("room").Add(float64(len(result.Conflicts.RoomConflicts)))

	switch {
	case result.DryRun:
		m.replications.WithLabelValues(replicationOutcomeDryRun).Inc()
	case !result.Conflicts.Empty():
		m.replications.WithLabelValues(replicationOutcomeConflict).Inc()
		atomic.AddUint64(&m.replicationsRejected, 1)
	default:
		m.replications.WithLabelValues(replicationOutcomeApplied).Inc()
		m.replicasCreated.Add(float64(len(result.Created)))
		atomic.AddUint64(&m.replicationsApplied, 1)
		atomic.AddUint64(&m.replicaCount, uint64(len(result.Created)))
	}
}

// ObserveSubstitution counts an applied substitution.
func (m *MetricsService) ObserveSubstitution(free bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.substitutionCount, 1)
	if free {
		m.substitutions.WithLabelValues("free").Inc()
		atomic.AddUint64(&m.freeSubstitutions, 1)
		return
	}
	m.substitutions.WithLabelValues("eligible").Inc()
}

// Snapshot returns the aggregated counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		ReplicationsApplied:      atomic.LoadUint64(&m.replicationsApplied),
		ReplicationsRejected:     atomic.LoadUint64(&m.replicationsRejected),
		ReplicasCreated:          atomic.LoadUint64(&m.replicaCount),
		Substitutions:            atomic.LoadUint64(&m.substitutionCount),
		FreeSubstitutions:        atomic.LoadUint64(&m.freeSubstitutions),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
