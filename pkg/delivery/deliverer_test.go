package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/generator"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/sink"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

// recordingSink fails the batches whose index is in failBatches and rejects
// records with an even id
type recordingSink struct {
	mu          sync.Mutex
	calls       []model.Collection
	sizes       []int
	failBatches map[int]bool
	rejectEven  bool
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) BatchInsert(ctx context.Context, c model.Collection, records []model.Record) (*model.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := len(r.calls)
	r.calls = append(r.calls, c)
	r.sizes = append(r.sizes, len(records))
	if r.failBatches[index] {
		return nil, errors.New("sink unavailable")
	}

	result := &model.BatchResult{}
	for i, rec := range records {
		if r.rejectEven && rec.RecordID()%2 == 0 {
			result.AddFailure(i, rec, errors.New("rejected"))
			continue
		}
		result.InsertedCount++
	}
	return result, nil
}

func (r *recordingSink) Close() error { return nil }

func kycRecords(n int) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.KYCEvent{KYCEventID: int64(i + 1)}
	}
	return out
}

func TestDeliverSplitsIntoBoundedBatches(t *testing.T) {
	s := &recordingSink{}
	d := New(Config{BatchSize: 4}, nil, zap.NewNop())

	report := d.Deliver(context.Background(), s, model.CollectionKYCEvents, kycRecords(10))

	assert.Equal(t, []int{4, 4, 2}, s.sizes)
	assert.Equal(t, 10, report.Records)
	assert.Equal(t, 10, report.Inserted)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Batches, 3)
	for i, b := range report.Batches {
		assert.Equal(t, i, b.Index)
		assert.NotEmpty(t, b.ID)
		assert.True(t, b.OK())
	}
	assert.NotEqual(t, report.Batches[0].ID, report.Batches[1].ID)
}

func TestFailedBatchDoesNotAbortDelivery(t *testing.T) {
	s := &recordingSink{failBatches: map[int]bool{1: true}}
	collector := metrics.NewCollector(zap.NewNop())
	d := New(Config{BatchSize: 3}, collector, zap.NewNop())

	report := d.Deliver(context.Background(), s, model.CollectionKYCEvents, kycRecords(9))

	require.Len(t, report.Batches, 3)
	assert.Equal(t, 6, report.Inserted)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 1, report.FailedBatches)
	assert.Equal(t, "sink unavailable", report.Batches[1].Error)
	assert.True(t, report.Batches[2].OK())

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.BatchesDelivered.WithLabelValues("recording", "kyc_events", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.BatchesDelivered.WithLabelValues("recording", "kyc_events", "failed")))
	assert.Equal(t, 6.0, testutil.ToFloat64(collector.RecordsInserted.WithLabelValues("recording", "kyc_events")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.RecordsFailed.WithLabelValues("recording", "kyc_events")))
}

func TestPartialBatches(t *testing.T) {
	s := &recordingSink{rejectEven: true}
	d := New(Config{BatchSize: 5}, nil, zap.NewNop())

	report := d.Deliver(context.Background(), s, model.CollectionKYCEvents, kycRecords(5))

	require.Len(t, report.Batches, 1)
	assert.Equal(t, 3, report.Batches[0].Inserted)
	assert.Equal(t, 2, report.Batches[0].Failed)
	assert.True(t, report.Batches[0].OK())
	assert.Equal(t, 0, report.FailedBatches)
}

func TestDeliverEmpty(t *testing.T) {
	s := &recordingSink{}
	report := New(Config{}, nil, nil).Deliver(context.Background(), s, model.CollectionDisputes, nil)

	assert.Empty(t, report.Batches)
	assert.Empty(t, s.calls)
}

func TestCanceledContextFailsRemainingBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &recordingSink{}
	report := New(Config{BatchSize: 2}, nil, zap.NewNop()).Deliver(ctx, s, model.CollectionKYCEvents, kycRecords(4))

	assert.Empty(t, s.calls)
	assert.Equal(t, 2, report.FailedBatches)
	assert.Equal(t, 4, report.Failed)
}

func TestThrottling(t *testing.T) {
	s := &recordingSink{}
	d := New(Config{BatchSize: 1, RatePerSecond: 20, Burst: 1}, nil, zap.NewNop())

	start := time.Now()
	d.Deliver(context.Background(), s, model.CollectionKYCEvents, kycRecords(4))

	// Three waits of 50ms after the initial token
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
	assert.Len(t, s.calls, 4)
}

func testDataset(t *testing.T) *generator.Dataset {
	t.Helper()
	params := generator.DefaultParams()
	params.Customers = 20
	params.Merchants = 5
	params.ATOCustomers = []int64{3}
	params.Start = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	params.End = time.Date(2023, 3, 8, 0, 0, 0, 0, time.UTC)
	params.DuplicatePairs = 1
	params.DuplicateTriples = 1
	params.KYCFailCount = 2

	g, err := generator.New(params, zap.NewNop())
	require.NoError(t, err)
	ds, err := g.Run(context.Background())
	require.NoError(t, err)
	return ds
}

func TestDeliverDatasetOrder(t *testing.T) {
	ds := testDataset(t)
	s := &recordingSink{}
	d := New(Config{BatchSize: 1 << 20}, nil, zap.NewNop())

	report := d.DeliverDataset(context.Background(), s, ds)

	assert.Equal(t, []model.Collection{
		model.CollectionPayments,
		model.CollectionAuthLogs,
		model.CollectionDisputes,
		model.CollectionKYCEvents,
	}, collectionsOf(report))
	assert.Equal(t, "recording", report.Sink)

	inserted, failed := report.Totals()
	total := 0
	for _, n := range ds.Counts() {
		total += n
	}
	assert.Equal(t, total, inserted)
	assert.Zero(t, failed)
	assert.False(t, report.HasFailures())
}

func TestDeliverDatasetIntoStore(t *testing.T) {
	ds := testDataset(t)
	st := store.NewMemoryStore(zap.NewNop())
	d := New(Config{
		BatchSize:   50,
		Collections: []model.Collection{model.CollectionKYCEvents, model.CollectionPayments},
	}, nil, zap.NewNop())

	report := d.DeliverDataset(context.Background(), sink.NewDirectSink(st), ds)

	assert.Equal(t, []model.Collection{model.CollectionPayments, model.CollectionKYCEvents}, collectionsOf(report))
	assert.Equal(t, len(ds.Payments), st.Count(model.CollectionPayments))
	assert.Equal(t, len(ds.KYCEvents), st.Count(model.CollectionKYCEvents))
	assert.Zero(t, st.Count(model.CollectionAuthLogs))
	assert.Nil(t, report.Collection(model.CollectionDisputes))

	// Delivering again only produces duplicates
	again := d.Deliver(context.Background(), sink.NewDirectSink(st), model.CollectionKYCEvents, ds.Records(model.CollectionKYCEvents))
	assert.Zero(t, again.Inserted)
	assert.Equal(t, len(ds.KYCEvents), again.Failed)
}

func collectionsOf(r *Report) []model.Collection {
	out := make([]model.Collection, len(r.Collections))
	for i, c := range r.Collections {
		out[i] = c.Collection
	}
	return out
}
