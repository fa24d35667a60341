// Package metrics provides Prometheus metrics for the randommarket spin service.
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
	delayBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Spin lifecycle
	spinsStarted   prometheus.Counter
	spinsCompleted prometheus.Counter
	spinsCancelled prometheus.Counter
	spinsRejected  *prometheus.CounterVec
	spinTicks      prometheus.Counter
	spinSteps      prometheus.Histogram
	spinDuration   prometheus.Histogram
	tickDelay      prometheus.Histogram
	spinActive     prometheus.Gauge
	workingList    prometheus.Gauge
	winsByEvent    *prometheus.CounterVec

	// Catalog
	catalogSize          prometheus.Gauge
	catalogRefreshes     prometheus.Counter
	catalogRefreshErrors prometheus.Counter
	catalogDropped       *prometheus.CounterVec
	sourceFallbacks      prometheus.Counter

	// Notification pipeline
	queueSize           prometheus.Gauge
	queueCapacity       prometheus.Gauge
	queueEnqueued       prometheus.Counter
	queueDequeued       prometheus.Counter
	queueDropped        prometheus.Counter
	dispatchLatency     prometheus.Histogram
	subscribers         prometheus.Gauge
	subscriberDrops     prometheus.Counter
	historyRecords      prometheus.Gauge
	historyDistinctWins prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "randommarket",
		subsystem:        "spin",
		histogramBuckets: prometheus.DefBuckets,
		delayBuckets:     []float64{0, 25, 50, 75, 100, 150, 200, 300, 500, 750, 1000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.spinsStarted = m.counter("started_total", "Total number of spins started")
	m.spinsCompleted = m.counter("completed_total", "Total number of spins that landed on their winner")
	m.spinsCancelled = m.counter("cancelled_total", "Total number of spins cancelled before completion")
	m.spinsRejected = m.counterVec("rejected_total", "Spin requests rejected by reason", "reason")
	m.spinTicks = m.counter("ticks_total", "Total number of highlight ticks emitted")
	m.spinSteps = m.histogram("steps", "Number of steps per completed spin",
		[]float64{5, 10, 20, 30, 40, 50, 60, 75, 100, 150})
	m.spinDuration = m.histogram("duration_seconds", "Wall clock duration of completed spins",
		[]float64{0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30})
	m.tickDelay = m.histogram("tick_delay_milliseconds", "Delay preceding each tick", m.delayBuckets)
	m.spinActive = m.gauge("active", "1 while a spin is in flight")
	m.workingList = m.gauge("working_list_size", "Length of the working list of the latest spin")
	m.winsByEvent = m.counterVec("wins_total", "Completed spins by winning event", "event_id")

	m.catalogSize = m.gauge("catalog_events", "Events currently available for selection")
	m.catalogRefreshes = m.counter("catalog_refreshes_total", "Successful catalog refreshes")
	m.catalogRefreshErrors = m.counter("catalog_refresh_errors_total", "Failed catalog refreshes")
	m.catalogDropped = m.counterVec("catalog_dropped_total", "Events dropped while refreshing the catalog", "reason")
	m.sourceFallbacks = m.counter("source_fallbacks_total", "Times the fallback event source was used")

	m.queueSize = m.gauge("queue_size", "Notifications waiting for dispatch")
	m.queueCapacity = m.gauge("queue_capacity", "Notification queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Notifications enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Notifications dequeued")
	m.queueDropped = m.counter("queue_dropped_total", "Notifications dropped because the queue was full or closed")
	m.dispatchLatency = m.histogram("dispatch_latency_milliseconds", "Time between enqueue and dispatch", m.histogramBuckets)
	m.subscribers = m.gauge("subscribers", "Connected stream subscribers")
	m.subscriberDrops = m.counter("subscriber_drops_total", "Notifications skipped for slow subscribers")
	m.historyRecords = m.gauge("history_records", "Spins kept in the recent history")
	m.historyDistinctWins = m.gauge("history_distinct_winners", "Distinct events that have won at least once")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests by endpoint and method", ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemory = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "memory_bytes",
		Help: "Heap bytes allocated", ConstLabels: m.constLabels,
	})
	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "goroutines",
		Help: "Number of goroutines", ConstLabels: m.constLabels,
	})
	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "gc_pause_milliseconds",
		Help: "Average GC pause in milliseconds", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}, ConstLabels: m.constLabels,
	})
}

// RecordSpinStarted marks a spin as started.
func RecordSpinStarted(workingListSize int) {
	globalManager.spinsStarted.Inc()
	globalManager.spinActive.Set(1)
	globalManager.workingList.Set(float64(workingListSize))
}

// RecordSpinCompleted records a spin that reached its winner.
func RecordSpinCompleted(eventID string, steps int, seconds float64) {
	globalManager.spinsCompleted.Inc()
	globalManager.spinActive.Set(0)
	globalManager.spinSteps.Observe(float64(steps))
	globalManager.spinDuration.Observe(seconds)
	globalManager.winsByEvent.WithLabelValues(eventID).Inc()
}

// RecordSpinCancelled records a cancelled spin.
func RecordSpinCancelled() {
	globalManager.spinsCancelled.Inc()
	globalManager.spinActive.Set(0)
}

// RecordSpinRejected records a refused spin request.
func RecordSpinRejected(reason string) {
	globalManager.spinsRejected.WithLabelValues(reason).Inc()
}

// RecordTick records a single emitted tick and the delay that preceded it.
func RecordTick(delayMs float64) {
	globalManager.spinTicks.Inc()
	globalManager.tickDelay.Observe(delayMs)
}

// UpdateCatalogSize sets the number of selectable events.
func UpdateCatalogSize(n int) {
	globalManager.catalogSize.Set(float64(n))
}

// RecordCatalogRefresh counts a successful refresh.
func RecordCatalogRefresh() {
	globalManager.catalogRefreshes.Inc()
}

// RecordCatalogRefreshError counts a failed refresh.
func RecordCatalogRefreshError() {
	globalManager.catalogRefreshErrors.Inc()
}

// RecordCatalogDropped counts events filtered out during a refresh.
func RecordCatalogDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.catalogDropped.WithLabelValues(reason).Add(float64(n))
}

// RecordSourceFallback counts a switch to the fallback source.
func RecordSourceFallback() {
	globalManager.sourceFallbacks.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
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

// RecordQueueDropped increments the dropped notifications counter.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// RecordDispatchLatency records enqueue to dispatch latency.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// UpdateSubscribers sets the connected subscriber count.
func UpdateSubscribers(n int) {
	globalManager.subscribers.Set(float64(n))
}

// RecordSubscriberDrop counts a notification skipped for a slow subscriber.
func RecordSubscriberDrop() {
	globalManager.subscriberDrops.Inc()
}

// UpdateHistory sets the history gauges.
func UpdateHistory(records, distinctWinners int) {
	globalManager.historyRecords.Set(float64(records))
	globalManager.historyDistinctWins.Set(float64(distinctWinners))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap bytes.
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
