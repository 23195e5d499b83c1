package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/errors"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

func TestNewDirectSinkIsNeverWrapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Delivery.Sink = config.SinkDirect

	s, err := New(context.Background(), cfg, Dependencies{Store: store.NewMemoryStore(zap.NewNop())})
	require.NoError(t, err)
	assert.IsType(t, &DirectSink{}, s)

	_, err = New(context.Background(), cfg, Dependencies{})
	assert.Error(t, err)
}

func TestNewWrapsRemoteSinks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Delivery.Sink = config.SinkFile
	cfg.Sinks.File.Directory = t.TempDir()

	s, err := New(context.Background(), cfg, Dependencies{})
	require.NoError(t, err)
	defer s.Close()

	rs, ok := s.(*ResilientSink)
	require.True(t, ok)
	assert.Equal(t, "file", rs.Name())
	assert.NotNil(t, rs.GetCircuitBreaker())
	assert.IsType(t, &errors.InMemoryDLQ{}, rs.DLQ())

	cfg.ErrorHandling.EnableRetry = false
	cfg.ErrorHandling.EnableDLQ = false
	cfg.ErrorHandling.EnableCircuitBreaker = false
	plain, err := New(context.Background(), cfg, Dependencies{})
	require.NoError(t, err)
	defer plain.Close()
	assert.IsType(t, &FileSink{}, plain)
}

func TestNewUnknownSink(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Delivery.Sink = "carrier-pigeon"

	_, err := New(context.Background(), cfg, Dependencies{})
	assert.Error(t, err)
}

func TestNewDLQ(t *testing.T) {
	eh := config.DefaultConfig().ErrorHandling

	eh.EnableDLQ = false
	dlq, err := NewDLQ(eh)
	require.NoError(t, err)
	assert.IsType(t, &errors.NullDLQ{}, dlq)

	eh.EnableDLQ = true
	eh.DLQType = "file"
	eh.DLQDirectory = t.TempDir()
	dlq, err = NewDLQ(eh)
	require.NoError(t, err)
	assert.IsType(t, &errors.FileDLQ{}, dlq)

	eh.DLQType = "s3"
	_, err = NewDLQ(eh)
	assert.Error(t, err)
}

func TestResilientConfigFrom(t *testing.T) {
	eh := config.DefaultConfig().ErrorHandling
	eh.MaxRetryAttempts = 7
	eh.CircuitBreakerConfig.FailureThreshold = 9

	rc := ResilientConfigFrom("http", eh, errors.NewNullDLQ())
	require.NotNil(t, rc.RetryPolicy)
	assert.Equal(t, 7, rc.RetryPolicy.MaxAttempts)
	require.NotNil(t, rc.CircuitBreakerConfig)
	assert.Equal(t, "http", rc.CircuitBreakerConfig.Name)
	assert.Equal(t, uint32(9), rc.CircuitBreakerConfig.FailureThreshold)
	assert.True(t, rc.EnableDLQ)

	eh.EnableRetry = false
	eh.EnableCircuitBreaker = false
	rc = ResilientConfigFrom("http", eh, nil)
	assert.Nil(t, rc.RetryPolicy)
	assert.Nil(t, rc.CircuitBreakerConfig)
}
