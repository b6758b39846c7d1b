// Package metrics provides Prometheus metrics for the stagely planner service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Planning
	plansComputed *prometheus.CounterVec
	planLatency   prometheus.Histogram
	blocks        prometheus.Counter
	splitBlocks   prometheus.Counter
	skipped       *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec

	// Ratings
	ratingWrites *prometheus.CounterVec

	// Store
	storeLatency  *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	storeRatings  prometheus.Gauge
	breakerStates *prometheus.GaugeVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount   prometheus.Gauge
	workerEvents  prometheus.Counter
	workerErrors  prometheus.Counter
	workerLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stagely",
		subsystem:        "planner",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.plansComputed = auto.NewCounterVec(m.counterOpts("plans_computed_total",
		"Number of computed views by kind (heatmap or plan)"), []string{"view"})
	m.planLatency = auto.NewHistogram(m.histogramOpts("plan_latency_milliseconds",
		"Time to run the planning pipeline in milliseconds"))
	m.blocks = auto.NewCounter(m.counterOpts("itinerary_blocks_total",
		"Number of itinerary blocks produced"))
	m.splitBlocks = auto.NewCounter(m.counterOpts("itinerary_split_blocks_total",
		"Number of itinerary blocks with more than one winner"))
	m.skipped = auto.NewCounterVec(m.counterOpts("ratings_skipped_total",
		"Ratings left out of a plan by reason"), []string{"reason"})
	m.cacheRequests = auto.NewCounterVec(m.counterOpts("plan_cache_requests_total",
		"Plan cache lookups by result"), []string{"result"})

	m.ratingWrites = auto.NewCounterVec(m.counterOpts("rating_writes_total",
		"Rating writes by operation and outcome"), []string{"op", "outcome"})

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Store call latency in milliseconds"), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Store call failures by operation"), []string{"op"})
	m.storeRatings = auto.NewGauge(m.gaugeOpts("store_ratings",
		"Ratings held by the in-memory store"))
	m.breakerStates = auto.NewGaugeVec(m.gaugeOpts("breaker_state",
		"Circuit breaker state (0 closed, 1 half-open, 2 open)"), []string{"name"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size",
		"Current number of pending rating events"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity",
		"Capacity of the rating event queue"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total",
		"Rating events accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total",
		"Rating events handed to workers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Rating events rejected because the queue was full or closed"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count",
		"Number of running workers"))
	m.workerEvents = auto.NewCounter(m.counterOpts("worker_events_total",
		"Rating events processed by workers"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Rating events whose handling failed"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Worker handling latency in milliseconds"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by route, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})

	m.systemMemory = auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: "system",
		Name: "memory_alloc_bytes", Help: "Heap bytes allocated", ConstLabels: m.constLabels})
	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: "system",
		Name: "goroutines", Help: "Number of goroutines", ConstLabels: m.constLabels})
	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: "system",
		Name: "gc_pause_milliseconds", Help: "Average GC pause in milliseconds", ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets})
}

// RecordPlanComputed counts one computed view.
func RecordPlanComputed(view string) {
	globalManager.plansComputed.WithLabelValues(view).Inc()
}

// RecordPlanLatency records pipeline latency in milliseconds.
func RecordPlanLatency(latencyMs float64) {
	globalManager.planLatency.Observe(latencyMs)
}

// RecordBlocks counts produced blocks and split blocks.
func RecordBlocks(total, splits int) {
	globalManager.blocks.Add(float64(total))
	globalManager.splitBlocks.Add(float64(splits))
}

// RecordSkippedRating counts a rating left out of a plan.
func RecordSkippedRating(reason string) {
	globalManager.skipped.WithLabelValues(reason).Inc()
}

// RecordCacheHit counts a plan cache hit.
func RecordCacheHit() { globalManager.cacheRequests.WithLabelValues("hit").Inc() }

// RecordCacheMiss counts a plan cache miss.
func RecordCacheMiss() { globalManager.cacheRequests.WithLabelValues("miss").Inc() }

// RecordCacheError counts a failed plan cache call.
func RecordCacheError() { globalManager.cacheRequests.WithLabelValues("error").Inc() }

// RecordRatingWrite counts a rating write.
func RecordRatingWrite(op, outcome string) {
	globalManager.ratingWrites.WithLabelValues(op, outcome).Inc()
}

// RecordStoreLatency records a store call latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store call.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// UpdateStoreRatings sets the number of ratings held in memory.
func UpdateStoreRatings(count int) {
	globalManager.storeRatings.Set(float64(count))
}

// UpdateBreakerState sets the state of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerStates.WithLabelValues(name).Set(float64(state))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerEvent counts a processed event and its latency.
func RecordWorkerEvent(latencyMs float64) {
	globalManager.workerEvents.Inc()
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutines.Set(float64(n))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPause.Observe(ms)
}
