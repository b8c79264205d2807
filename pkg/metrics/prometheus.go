// Package metrics provides Prometheus metrics for the lifespan service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// expectancyBuckets cover the clamp bands of every built-in rule set.
var expectancyBuckets = []float64{30, 40, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100}

// Manager manages all Prometheus metrics for the lifespan service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics
	predictions          *prometheus.CounterVec
	predictionsDuplicate prometheus.Counter
	expectancy           *prometheus.HistogramVec
	scoringLatency       prometheus.Histogram
	previews             prometheus.Counter
	rulesReloads         *prometheus.CounterVec

	// Account Metrics
	registrations    prometheus.Counter
	loginAttempts    *prometheus.CounterVec
	loginRateLimited prometheus.Counter
	passwordResets   *prometheus.CounterVec

	// Notification Metrics
	notifications *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lifespan",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.predictions = m.counterVec("predictions_total", "Total number of stored predictions by rule set", "ruleset")
	m.predictionsDuplicate = m.counter("predictions_duplicate_total", "Total number of prediction submissions dropped as duplicates")
	m.expectancy = m.histogramVec("predicted_expectancy_years", "Distribution of predicted life expectancy in years", expectancyBuckets, "ruleset")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Histogram of scoring latency in milliseconds", m.histogramBuckets)
	m.previews = m.counter("previews_total", "Total number of anonymous score previews")
	m.rulesReloads = m.counterVec("rules_reloads_total", "Rule file reloads by outcome", "outcome")

	m.registrations = m.counter("registrations_total", "Total number of registered accounts")
	m.loginAttempts = m.counterVec("login_attempts_total", "Login attempts by outcome", "outcome")
	m.loginRateLimited = m.counter("login_rate_limited_total", "Login attempts rejected by the rate limiter")
	m.passwordResets = m.counterVec("password_resets_total", "Password reset steps by stage", "stage")

	m.notifications = m.counterVec("notifications_total", "Notification jobs by kind and outcome", "kind", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current size of the notification queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum notification queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Configured number of notification workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently handling a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed jobs")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordPrediction counts a stored prediction and observes its expectancy.
func RecordPrediction(ruleset string, expectancy float64) {
	globalManager.predictions.WithLabelValues(ruleset).Inc()
	globalManager.expectancy.WithLabelValues(ruleset).Observe(expectancy)
}

// RecordPredictionDuplicate increments the duplicate submissions counter.
func RecordPredictionDuplicate() {
	globalManager.predictionsDuplicate.Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordPreview increments the anonymous preview counter.
func RecordPreview() {
	globalManager.previews.Inc()
}

// RecordRulesReload counts a rule file reload; outcome is "ok" or "error".
func RecordRulesReload(outcome string) {
	globalManager.rulesReloads.WithLabelValues(outcome).Inc()
}

// RecordRegistration increments the registrations counter.
func RecordRegistration() {
	globalManager.registrations.Inc()
}

// RecordLoginAttempt counts a login attempt; outcome is "success" or "failure".
func RecordLoginAttempt(outcome string) {
	globalManager.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordLoginRateLimited increments the rate-limited logins counter.
func RecordLoginRateLimited() {
	globalManager.loginRateLimited.Inc()
}

// RecordPasswordReset counts a reset step; stage is "requested" or "completed".
func RecordPasswordReset(stage string) {
	globalManager.passwordResets.WithLabelValues(stage).Inc()
}

// RecordNotification counts a notification job outcome ("sent", "failed", "skipped").
func RecordNotification(kind, outcome string) {
	globalManager.notifications.WithLabelValues(kind, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

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
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive adjusts the number of busy workers by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
