package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ErrorMetrics holds metrics for the retry, circuit breaker and dead letter
// layers wrapped around sinks
type ErrorMetrics struct {
	// Retry metrics
	RetryAttempts    *prometheus.CounterVec
	RetrySuccesses   *prometheus.CounterVec
	RetryFailures    *prometheus.CounterVec
	RetryBackoffTime *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState       *prometheus.GaugeVec
	CircuitBreakerTransitions *prometheus.CounterVec
	CircuitBreakerRequests    *prometheus.CounterVec

	// Dead letter metrics
	DLQBatchesWritten *prometheus.CounterVec
	DLQBatchesRead    *prometheus.CounterVec
	DLQBatchesDeleted *prometheus.CounterVec
	DLQSize           *prometheus.GaugeVec

	// Error categorization metrics
	ErrorsByCategory *prometheus.CounterVec
}

// NewErrorMetrics creates the error metrics and registers them on registry
func NewErrorMetrics(registry *prometheus.Registry) *ErrorMetrics {
	em := &ErrorMetrics{}
	em.initMetrics()
	em.registerMetrics(registry)
	return em
}

func (em *ErrorMetrics) initMetrics() {
	// Retry metrics
	em.RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_retry_attempts_total",
			Help: "Total number of batch insert retries",
		},
		[]string{"sink", "error_category"},
	)

	em.RetrySuccesses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_retry_successes_total",
			Help: "Total number of batches that succeeded after at least one retry",
		},
		[]string{"sink"},
	)

	em.RetryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_retry_failures_total",
			Help: "Total number of batches that exhausted every attempt",
		},
		[]string{"sink", "error_category"},
	)

	em.RetryBackoffTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudsim_retry_backoff_seconds",
			Help:    "Backoff waited before a retry",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"sink"},
	)

	// Circuit breaker metrics
	em.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsim_circuit_breaker_state",
			Help: "Current state of a sink circuit breaker (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	em.CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"circuit_name", "from_state", "to_state"},
	)

	em.CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker by result",
		},
		[]string{"circuit_name", "result"},
	)

	// Dead letter metrics
	em.DLQBatchesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_dlq_batches_written_total",
			Help: "Total number of failed batches written to the dead letter queue",
		},
		[]string{"sink", "error_category"},
	)

	em.DLQBatchesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_dlq_batches_read_total",
			Help: "Total number of failed batches read back for replay",
		},
		[]string{"sink"},
	)

	em.DLQBatchesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_dlq_batches_deleted_total",
			Help: "Total number of failed batches removed after replay",
		},
		[]string{"sink"},
	)

	em.DLQSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudsim_dlq_size_batches",
			Help: "Current number of batches held in the dead letter queue",
		},
		[]string{"sink"},
	)

	em.ErrorsByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudsim_errors_by_category_total",
			Help: "Total number of sink errors by category",
		},
		[]string{"sink", "category"},
	)
}

func (em *ErrorMetrics) registerMetrics(registry *prometheus.Registry) {
	registry.MustRegister(em.RetryAttempts)
	registry.MustRegister(em.RetrySuccesses)
	registry.MustRegister(em.RetryFailures)
	registry.MustRegister(em.RetryBackoffTime)

	registry.MustRegister(em.CircuitBreakerState)
	registry.MustRegister(em.CircuitBreakerTransitions)
	registry.MustRegister(em.CircuitBreakerRequests)

	registry.MustRegister(em.DLQBatchesWritten)
	registry.MustRegister(em.DLQBatchesRead)
	registry.MustRegister(em.DLQBatchesDeleted)
	registry.MustRegister(em.DLQSize)

	registry.MustRegister(em.ErrorsByCategory)
}
