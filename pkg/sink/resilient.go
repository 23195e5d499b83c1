package sink

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/errors"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// ResilientSinkConfig configures retry, circuit breaking and dead lettering
// around a sink. A nil RetryPolicy disables retries and a nil
// CircuitBreakerConfig disables the breaker.
type ResilientSinkConfig struct {
	RetryPolicy          *errors.RetryPolicy
	CircuitBreakerConfig *errors.CircuitBreakerConfig
	EnableDLQ            bool
	DLQ                  errors.DeadLetterQueue
}

// DefaultResilientSinkConfig returns default resilient sink configuration
func DefaultResilientSinkConfig(name string) *ResilientSinkConfig {
	return &ResilientSinkConfig{
		RetryPolicy:          errors.DefaultRetryPolicy(),
		CircuitBreakerConfig: errors.DefaultCircuitBreakerConfig(name),
		EnableDLQ:            false,
		DLQ:                  errors.NewNullDLQ(),
	}
}

// ResilientSink retries failed batches through a circuit breaker and moves
// batches that still fail to the dead letter queue
type ResilientSink struct {
	sink           Sink
	circuitBreaker *errors.CircuitBreaker
	retryPolicy    *errors.RetryPolicy
	dlq            errors.DeadLetterQueue
	enableDLQ      bool
	metrics        *metrics.ErrorMetrics
	logger         *zap.Logger
	name           string
}

// NewResilientSink wraps sink. metricsCollector may be nil.
func NewResilientSink(
	sink Sink,
	config *ResilientSinkConfig,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *ResilientSink {
	var em *metrics.ErrorMetrics
	if metricsCollector != nil {
		em = metricsCollector.ErrorMetrics
	}

	rs := &ResilientSink{
		sink:        sink,
		retryPolicy: config.RetryPolicy,
		dlq:         config.DLQ,
		enableDLQ:   config.EnableDLQ,
		metrics:     em,
		logger:      logger,
		name:        sink.Name(),
	}
	if rs.retryPolicy == nil {
		rs.retryPolicy = errors.NoRetryPolicy()
	}
	if rs.dlq == nil {
		rs.dlq = errors.NewNullDLQ()
	}

	if cbConfig := config.CircuitBreakerConfig; cbConfig != nil {
		if cbConfig.Name == "" {
			cbConfig.Name = rs.name
		}
		if cbConfig.OnStateChange == nil {
			cbConfig.OnStateChange = rs.onStateChange
		}
		rs.circuitBreaker = errors.NewCircuitBreaker(cbConfig)
	}

	return rs
}

func (rs *ResilientSink) onStateChange(name string, from, to errors.CircuitState) {
	if rs.metrics != nil {
		rs.metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		rs.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}

	rs.logger.Info("Circuit breaker state changed",
		zap.String("circuit", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

func (rs *ResilientSink) Name() string { return rs.name }

// BatchInsert delivers the batch with retries. Partial success is not an
// error and is never retried.
func (rs *ResilientSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	var result *model.BatchResult

	retryResult := rs.retryPolicy.ExecuteWithCallback(
		ctx,
		func(retryCtx context.Context) error {
			res, err := rs.attempt(retryCtx, collection, records)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		func(attempt int, err error, nextBackoff time.Duration) {
			category := errors.ClassifyError(err).String()
			if rs.metrics != nil {
				rs.metrics.ErrorsByCategory.WithLabelValues(rs.name, category).Inc()
			}
			if nextBackoff == 0 {
				return
			}
			if rs.metrics != nil {
				rs.metrics.RetryAttempts.WithLabelValues(rs.name, category).Inc()
				rs.metrics.RetryBackoffTime.WithLabelValues(rs.name).Observe(nextBackoff.Seconds())
			}
			rs.logger.Warn("Retrying batch insert",
				zap.String("sink", rs.name),
				zap.String("collection", string(collection)),
				zap.Int("attempt", attempt),
				zap.Duration("next_backoff", nextBackoff),
				zap.Error(err),
			)
		},
	)

	if retryResult.Success {
		if retryResult.Attempts > 1 && rs.metrics != nil {
			rs.metrics.RetrySuccesses.WithLabelValues(rs.name).Inc()
		}
		return result, nil
	}

	finalErr := retryResult.LastError
	category := errors.ClassifyError(finalErr).String()
	if rs.metrics != nil {
		rs.metrics.RetryFailures.WithLabelValues(rs.name, category).Inc()
	}

	if rs.enableDLQ {
		rs.deadLetter(ctx, collection, records, finalErr, retryResult.Attempts)
	}

	return nil, finalErr
}

func (rs *ResilientSink) attempt(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	if rs.circuitBreaker == nil {
		return rs.sink.BatchInsert(ctx, collection, records)
	}

	var result *model.BatchResult
	err := rs.circuitBreaker.Execute(ctx, func() error {
		res, err := rs.sink.BatchInsert(ctx, collection, records)
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	if rs.metrics != nil {
		rs.metrics.CircuitBreakerRequests.WithLabelValues(rs.name, requestOutcome(err)).Inc()
	}
	return result, err
}

func requestOutcome(err error) string {
	var open *errors.ErrCircuitOpen
	var tooMany *errors.ErrTooManyRequests
	switch {
	case err == nil:
		return "success"
	case stderrors.As(err, &open):
		return "rejected_open"
	case stderrors.As(err, &tooMany):
		return "rejected_half_open"
	default:
		return "failure"
	}
}

func (rs *ResilientSink) deadLetter(ctx context.Context, collection model.Collection, records []model.Record, err error, attempts int) {
	batch := errors.NewFailedBatch(rs.name, collection, records, err, attempts)

	// The caller's context may be the reason the batch failed
	dlqCtx := context.WithoutCancel(ctx)
	if dlqErr := rs.dlq.Write(dlqCtx, batch); dlqErr != nil {
		rs.logger.Error("Failed to write batch to DLQ",
			zap.String("sink", rs.name),
			zap.String("collection", string(collection)),
			zap.Error(dlqErr),
		)
		return
	}

	if rs.metrics != nil {
		rs.metrics.DLQBatchesWritten.WithLabelValues(rs.name, batch.FailureCategory).Inc()
		if n, err := rs.dlq.Count(dlqCtx); err == nil {
			rs.metrics.DLQSize.WithLabelValues(rs.name).Set(float64(n))
		}
	}

	rs.logger.Warn("Batch moved to DLQ",
		zap.String("sink", rs.name),
		zap.String("collection", string(collection)),
		zap.String("batch_id", batch.ID),
		zap.Int("records", len(records)),
		zap.Error(err),
	)
}

// Close closes the wrapped sink
func (rs *ResilientSink) Close() error {
	return rs.sink.Close()
}

// GetCircuitBreaker returns the circuit breaker, nil when disabled
func (rs *ResilientSink) GetCircuitBreaker() *errors.CircuitBreaker {
	return rs.circuitBreaker
}

// ResetCircuitBreaker resets the circuit breaker
func (rs *ResilientSink) ResetCircuitBreaker() {
	if rs.circuitBreaker != nil {
		rs.circuitBreaker.Reset()
	}
}

// DLQ returns the dead letter queue
func (rs *ResilientSink) DLQ() errors.DeadLetterQueue {
	return rs.dlq
}
