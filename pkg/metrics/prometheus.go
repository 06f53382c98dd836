// Package metrics provides Prometheus metrics for the tweets service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the tweets service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Resource metrics
	tweetsTotal    prometheus.Gauge
	tweetMutations *prometheus.CounterVec
	validationFail prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store metrics, labelled by backend driver and operation
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter

	// Event pipeline metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	eventsEnqueued    prometheus.Counter
	eventsDropped     *prometheus.CounterVec
	eventsPublished   prometheus.Counter
	eventsFailed      prometheus.Counter
	publishLatency    prometheus.Histogram
	workerActiveCount prometheus.Gauge

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "tweets",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.tweetsTotal = auto.NewGauge(m.gaugeOpts("tweets_total", "Number of tweets currently stored"))
	m.tweetMutations = auto.NewCounterVec(
		m.counterOpts("tweet_mutations_total", "Successful tweet mutations by operation"),
		[]string{"operation"},
	)
	m.validationFail = auto.NewCounter(m.counterOpts("validation_failures_total", "Requests rejected by the validation gate"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_duration_milliseconds", "Tweet store operation latency in milliseconds"),
		[]string{"driver", "operation"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Tweet store errors other than not-found"),
		[]string{"driver", "operation"},
	)

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Tweet cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Tweet cache misses"))
	m.cacheErrors = auto.NewCounter(m.counterOpts("cache_errors_total", "Tweet cache errors"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("event_queue_size", "Current size of the tweet event queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("event_queue_capacity", "Capacity of the tweet event queue"))
	m.eventsEnqueued = auto.NewCounter(m.counterOpts("events_enqueued_total", "Tweet events accepted by the queue"))
	m.eventsDropped = auto.NewCounterVec(
		m.counterOpts("events_dropped_total", "Tweet events dropped before publishing"),
		[]string{"reason"},
	)
	m.eventsPublished = auto.NewCounter(m.counterOpts("events_published_total", "Tweet events published"))
	m.eventsFailed = auto.NewCounter(m.counterOpts("events_failed_total", "Tweet events that failed to publish"))
	m.publishLatency = auto.NewHistogram(m.histogramOpts("event_publish_duration_milliseconds", "Event publish latency in milliseconds"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("event_workers_active", "Number of running event workers"))

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// Resource metrics.

// UpdateTweetsTotal sets the number of stored tweets.
func UpdateTweetsTotal(count int64) {
	if globalManager.enabled {
		globalManager.tweetsTotal.Set(float64(count))
	}
}

// RecordTweetMutation counts a successful create, update or delete.
func RecordTweetMutation(operation string) {
	if globalManager.enabled {
		globalManager.tweetMutations.WithLabelValues(operation).Inc()
	}
}

// RecordValidationFailure counts a request rejected by the validation gate.
func RecordValidationFailure() {
	if globalManager.enabled {
		globalManager.validationFail.Inc()
	}
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// Store metrics.

// RecordStoreLatency records the latency of one store operation.
func RecordStoreLatency(driver, operation string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(driver, operation).Observe(latencyMs)
	}
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(driver, operation string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(driver, operation).Inc()
	}
}

// Cache metrics.

// RecordCacheHit counts a cache hit.
func RecordCacheHit() {
	if globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss() {
	if globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

// RecordCacheError counts a cache error.
func RecordCacheError() {
	if globalManager.enabled {
		globalManager.cacheErrors.Inc()
	}
}

// Event pipeline metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordEventEnqueued counts an event accepted by the queue.
func RecordEventEnqueued() {
	if globalManager.enabled {
		globalManager.eventsEnqueued.Inc()
	}
}

// RecordEventDropped counts an event that was not queued.
func RecordEventDropped(reason string) {
	if globalManager.enabled {
		globalManager.eventsDropped.WithLabelValues(reason).Inc()
	}
}

// RecordEventPublished counts a published event and its publish latency.
func RecordEventPublished(latencyMs float64) {
	if globalManager.enabled {
		globalManager.eventsPublished.Inc()
		globalManager.publishLatency.Observe(latencyMs)
	}
}

// RecordEventFailed counts an event the publisher rejected.
func RecordEventFailed() {
	if globalManager.enabled {
		globalManager.eventsFailed.Inc()
	}
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if globalManager.enabled {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// Error metrics.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
