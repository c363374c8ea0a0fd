// Package metrics provides Prometheus metrics for the verdict judging service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Distribution metrics
	distributionRuns     prometheus.Counter
	distributionErrors   prometheus.Counter
	distributionDuration prometheus.Histogram
	assignedSubmissions  prometheus.Counter
	assignmentWrites     prometheus.Counter
	assignmentDeletes    prometheus.Counter

	// Progress and gate metrics
	progressChecks  prometheus.Counter
	reviewsRecorded prometheus.Counter
	gateOutcomes    *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// Store metrics
	storeQueryLatency  prometheus.Histogram
	storeUpdateLatency prometheus.Histogram
	leaseAcquired      prometheus.Counter
	leaseContention    prometheus.Counter

	// Pool cache metrics
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter

	// External evaluation service metrics
	evaluationCalls  *prometheus.CounterVec
	evaluationErrors prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "verdict",
		subsystem:        "judging",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.distributionRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_runs_total",
		Help:      "Total number of distribution runs executed",
	})
	m.distributionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_errors_total",
		Help:      "Total number of failed distribution runs",
	})
	m.distributionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "distribution_duration_milliseconds",
		Help:      "Histogram of distribution run duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.assignedSubmissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assigned_submissions_total",
		Help:      "Total number of submissions assigned to judges",
	})
	m.assignmentWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignment_record_writes_total",
		Help:      "Total number of judge assignment records written",
	})
	m.assignmentDeletes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignment_record_deletes_total",
		Help:      "Total number of judge assignment records deleted",
	})

	m.progressChecks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "progress_checks_total",
		Help:      "Total number of judge progress aggregations",
	})
	m.reviewsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reviews_recorded_total",
		Help:      "Total number of judge review completions recorded",
	})
	m.gateOutcomes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "gate_outcomes_total",
			Help:      "Leaderboard-generation gate outcomes by resulting state",
		},
		[]string{"state"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter",
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Document store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Document store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.leaseAcquired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lease_acquired_total",
		Help:      "Total number of distribution leases granted",
	})
	m.leaseContention = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lease_contention_total",
		Help:      "Total number of lease acquisitions refused because the lease was held",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_hits_total",
		Help:      "Total number of pool cache hits",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_misses_total",
		Help:      "Total number of pool cache misses",
	})
	m.cacheEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pool_cache_evictions_total",
		Help:      "Total number of pool cache evictions",
	})

	m.evaluationCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evaluation_calls_total",
			Help:      "Calls to the external evaluation service by operation",
		},
		[]string{"operation"},
	)
	m.evaluationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_errors_total",
		Help:      "Total number of failed external evaluation service calls",
	})
}

// GetRegistry returns the custom registry used for metric exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers on the global manager.

func RecordDistributionRun() {
	if globalManager.enabled {
		globalManager.distributionRuns.Inc()
	}
}

func RecordDistributionError() {
	if globalManager.enabled {
		globalManager.distributionErrors.Inc()
	}
}

func RecordDistributionDuration(ms float64) {
	if globalManager.enabled {
		globalManager.distributionDuration.Observe(ms)
	}
}

func RecordAssignedSubmissions(n int) {
	if globalManager.enabled {
		globalManager.assignedSubmissions.Add(float64(n))
	}
}

func RecordAssignmentWrites(n int) {
	if globalManager.enabled {
		globalManager.assignmentWrites.Add(float64(n))
	}
}

func RecordAssignmentDeletes(n int) {
	if globalManager.enabled {
		globalManager.assignmentDeletes.Add(float64(n))
	}
}

func RecordProgressCheck() {
	if globalManager.enabled {
		globalManager.progressChecks.Inc()
	}
}

func RecordReviewRecorded() {
	if globalManager.enabled {
		globalManager.reviewsRecorded.Inc()
	}
}

func RecordGateOutcome(state string) {
	if globalManager.enabled {
		globalManager.gateOutcomes.WithLabelValues(state).Inc()
	}
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

func RecordHTTPRateLimited() {
	if globalManager.enabled {
		globalManager.httpRateLimited.Inc()
	}
}

func RecordStoreQueryLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.Observe(ms)
	}
}

func RecordStoreUpdateLatency(ms float64) {
	if globalManager.enabled {
		globalManager.storeUpdateLatency.Observe(ms)
	}
}

func RecordLeaseAcquired() {
	if globalManager.enabled {
		globalManager.leaseAcquired.Inc()
	}
}

func RecordLeaseContention() {
	if globalManager.enabled {
		globalManager.leaseContention.Inc()
	}
}

func RecordCacheHit() {
	if globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

func RecordCacheMiss() {
	if globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

func RecordCacheEviction() {
	if globalManager.enabled {
		globalManager.cacheEvictions.Inc()
	}
}

func RecordEvaluationCall(operation string) {
	if globalManager.enabled {
		globalManager.evaluationCalls.WithLabelValues(operation).Inc()
	}
}

func RecordEvaluationError() {
	if globalManager.enabled {
		globalManager.evaluationErrors.Inc()
	}
}
