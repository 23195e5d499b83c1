package sink

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/errors"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/schema"
	"go.uber.org/zap"
)

// Dependencies are the collaborators a sink may need
type Dependencies struct {
	// Store backs the direct sink
	Store   Store
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// New creates the sink selected by cfg.Delivery.Sink, wrapped with the
// configured error handling. The direct sink is never wrapped.
func New(ctx context.Context, cfg *config.Config, deps Dependencies) (Sink, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := newBase(ctx, cfg, deps.Store, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Delivery.Sink == config.SinkDirect {
		return base, nil
	}

	eh := cfg.ErrorHandling
	if !eh.EnableRetry && !eh.EnableCircuitBreaker && !eh.EnableDLQ {
		return base, nil
	}

	dlq, err := NewDLQ(eh)
	if err != nil {
		base.Close()
		return nil, err
	}

	return NewResilientSink(base, ResilientConfigFrom(base.Name(), eh, dlq), deps.Metrics, logger), nil
}

func newBase(ctx context.Context, cfg *config.Config, store Store, logger *zap.Logger) (Sink, error) {
	sinks := cfg.Sinks

	switch cfg.Delivery.Sink {
	case config.SinkDirect:
		if store == nil {
			return nil, fmt.Errorf("direct sink requires a store")
		}
		return NewDirectSink(store), nil

	case config.SinkHTTP:
		return NewHTTPSink(HTTPSinkConfig{BaseURL: sinks.HTTP.BaseURL, Timeout: sinks.HTTP.Timeout}, logger)

	case config.SinkFile:
		return NewFileSink(sinks.File.Directory, logger)

	case config.SinkKafka:
		var registry schema.RegistryClient
		if sinks.Kafka.SchemaRegistryURL != "" {
			r, err := schema.NewRegistryClient(schema.DefaultConfig(sinks.Kafka.SchemaRegistryURL), logger)
			if err != nil {
				return nil, err
			}
			registry = r
		} else {
			registry = schema.NewLocalRegistry()
		}
		return NewKafkaSink(KafkaSinkConfig{
			Brokers:      sinks.Kafka.Brokers,
			TopicPrefix:  sinks.Kafka.TopicPrefix,
			FlushTimeout: sinks.Kafka.FlushTimeout,
			CodecManager: schema.NewCodecManager(registry, logger),
		}, logger)

	case config.SinkPostgres:
		return NewPostgresSink(ctx, PostgresSinkConfig{
			ConnectionString: sinks.Postgres.ConnectionString,
			CreateTables:     sinks.Postgres.CreateTables,
		}, logger)

	case config.SinkRedis:
		return NewRedisSink(ctx, RedisSinkConfig{
			Address:   sinks.Redis.Address,
			Password:  sinks.Redis.Password,
			DB:        sinks.Redis.DB,
			KeyPrefix: sinks.Redis.KeyPrefix,
			TTL:       sinks.Redis.TTL,
		}, logger)

	case config.SinkNATS:
		return NewNATSSink(NATSSinkConfig{URL: sinks.NATS.URL, SubjectPrefix: sinks.NATS.SubjectPrefix}, logger)

	case config.SinkWebSocket:
		return NewWebSocketSink(WebSocketSinkConfig{URL: sinks.WebSocket.URL}, logger)

	default:
		return nil, fmt.Errorf("unknown sink: %s", cfg.Delivery.Sink)
	}
}

// NewDLQ creates the dead letter queue selected by the error handling config
func NewDLQ(eh config.ErrorHandlingConfig) (errors.DeadLetterQueue, error) {
	if !eh.EnableDLQ {
		return errors.NewNullDLQ(), nil
	}

	switch eh.DLQType {
	case "", "memory":
		return errors.NewInMemoryDLQ(eh.DLQMaxSize), nil
	case "file":
		return errors.NewFileDLQ(eh.DLQDirectory)
	default:
		return nil, fmt.Errorf("unknown DLQ type: %s", eh.DLQType)
	}
}

// ResilientConfigFrom converts error handling settings for the sink called name
func ResilientConfigFrom(name string, eh config.ErrorHandlingConfig, dlq errors.DeadLetterQueue) *ResilientSinkConfig {
	rc := &ResilientSinkConfig{
		EnableDLQ: eh.EnableDLQ,
		DLQ:       dlq,
	}

	if eh.EnableRetry {
		rc.RetryPolicy = &errors.RetryPolicy{
			MaxAttempts:       eh.MaxRetryAttempts,
			InitialBackoff:    eh.InitialBackoff,
			MaxBackoff:        eh.MaxBackoff,
			BackoffMultiplier: eh.BackoffMultiplier,
			Jitter:            eh.BackoffJitter,
			RetriableFunc:     errors.IsRetriable,
		}
	}

	if eh.EnableCircuitBreaker {
		cb := errors.DefaultCircuitBreakerConfig(name)
		if eh.CircuitBreakerConfig.FailureThreshold > 0 {
			cb.FailureThreshold = eh.CircuitBreakerConfig.FailureThreshold
		}
		if eh.CircuitBreakerConfig.SuccessThreshold > 0 {
			cb.SuccessThreshold = eh.CircuitBreakerConfig.SuccessThreshold
		}
		if eh.CircuitBreakerConfig.Timeout > 0 {
			cb.Timeout = eh.CircuitBreakerConfig.Timeout
		}
		rc.CircuitBreakerConfig = cb
	}

	return rc
}
