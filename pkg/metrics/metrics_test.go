package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollectorRegistersEverything(t *testing.T) {
	c := NewCollector(zap.NewNop())

	c.RecordsGenerated.WithLabelValues("payments").Add(12)
	c.BatchesDelivered.WithLabelValues("http", "payments", "success").Inc()
	c.ErrorMetrics.RetryAttempts.WithLabelValues("http", "transient").Inc()
	c.ErrorMetrics.DLQBatchesWritten.WithLabelValues("http", "fatal").Inc()

	assert.Equal(t, float64(12), testutil.ToFloat64(c.RecordsGenerated.WithLabelValues("payments")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.ErrorMetrics.DLQBatchesWritten.WithLabelValues("http", "fatal")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fraudsim_records_generated_total"])
	assert.True(t, names["fraudsim_retry_attempts_total"])
	assert.True(t, names["go_goroutines"])
}

func TestObserveComponent(t *testing.T) {
	c := NewCollector(zap.NewNop())
	c.ObserveComponent("payments", time.Now().Add(-time.Second))
	c.ObserveComponent("payments", time.Now())

	assert.Equal(t, 1, testutil.CollectAndCount(c.ComponentDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(zap.NewNop())
	c.InvariantFailures.Inc()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fraudsim_invariant_failures_total 1")
}
