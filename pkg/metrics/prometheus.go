// Package metrics provides Prometheus metrics for the trophycase service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Feed ingestion
	messagesReceived  *prometheus.CounterVec
	messagesDuplicate prometheus.Counter
	messagesEmpty     *prometheus.CounterVec

	// Catalogue
	achievementsTotal  prometheus.Gauge
	achievementsLocked prometheus.Gauge
	gamerscoreTotal    prometheus.Gauge
	gameSwitches       prometheus.Counter

	// Display cycle
	displayPublishes   *prometheus.CounterVec
	displaySubscribers prometheus.Gauge
	overlayClients     prometheus.Gauge
	broadcastPublishes prometheus.Counter
	iconFetches        *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trophycase",
		subsystem:        "feed",
		histogramBuckets: DefaultLatencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.messagesReceived = m.counterVec("messages_received_total",
		"Feed messages accepted for processing by kind", "kind")
	m.messagesDuplicate = m.counter("messages_duplicate_total",
		"Feed messages acknowledged as redeliveries")
	m.messagesEmpty = m.counterVec("messages_empty_total",
		"Feed messages that decoded to no records by kind", "kind")

	m.achievementsTotal = m.gauge("achievements_total",
		"Achievements known for the current title")
	m.achievementsLocked = m.gauge("achievements_locked",
		"Locked achievements of the current title")
	m.gamerscoreTotal = m.gauge("gamerscore_total",
		"Gamerscore earned on the current title")
	m.gameSwitches = m.counter("game_switches_total",
		"Number of times the foreground title changed")

	m.displayPublishes = m.counterVec("display_publishes_total",
		"Achievements published by the display cycle by phase", "phase")
	m.displaySubscribers = m.gauge("display_subscribers",
		"Subscribers registered with the display cycle")
	m.overlayClients = m.gauge("overlay_clients",
		"Connected overlay websocket clients")
	m.broadcastPublishes = m.counter("broadcast_publishes_total",
		"Display changes written to redis")
	m.iconFetches = m.counterVec("icon_fetches_total",
		"Icon downloads by result", "result")

	m.queueSize = m.gauge("queue_size", "Current size of the message queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the message queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization from 0 to 1")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Messages enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Messages dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Enqueue latency in milliseconds")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently handling a message")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Message handling latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total", "Messages whose handling failed")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds",
		"Most recent GC pause in milliseconds")
}

// Feed ingestion.

// RecordMessageReceived counts an accepted message of the given kind.
func RecordMessageReceived(kind string) {
	globalManager.messagesReceived.WithLabelValues(kind).Inc()
}

// RecordMessageDuplicate counts a redelivered message.
func RecordMessageDuplicate() {
	globalManager.messagesDuplicate.Inc()
}

// RecordMessageEmpty counts a message that decoded to nothing.
func RecordMessageEmpty(kind string) {
	globalManager.messagesEmpty.WithLabelValues(kind).Inc()
}

// Catalogue.

// UpdateCatalogue sets the catalogue gauges.
func UpdateCatalogue(total, locked int, gamerscore int64) {
	globalManager.achievementsTotal.Set(float64(total))
	globalManager.achievementsLocked.Set(float64(locked))
	globalManager.gamerscoreTotal.Set(float64(gamerscore))
}

// RecordGameSwitch counts a title change.
func RecordGameSwitch() {
	globalManager.gameSwitches.Inc()
}

// Display.

// RecordDisplayPublish counts a publication in the given phase.
func RecordDisplayPublish(phase string) {
	globalManager.displayPublishes.WithLabelValues(phase).Inc()
}

// UpdateDisplaySubscribers sets the subscriber gauge.
func UpdateDisplaySubscribers(count int) {
	globalManager.displaySubscribers.Set(float64(count))
}

// UpdateOverlayClients sets the websocket client gauge.
func UpdateOverlayClients(count int) {
	globalManager.overlayClients.Set(float64(count))
}

// RecordBroadcastPublish counts a display change written to redis.
func RecordBroadcastPublish() {
	globalManager.broadcastPublishes.Inc()
}

// RecordIconFetch counts an icon download with result "fetched", "cached" or
// "failed".
func RecordIconFetch(result string) {
	globalManager.iconFetches.WithLabelValues(result).Inc()
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued message.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeued message.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a failed enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records handling latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed message.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP.

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
