package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/generator"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/sink"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBatchSize is used when Config.BatchSize is not positive
const DefaultBatchSize = 1000

// Config controls batching and throttling
type Config struct {
	BatchSize int
	// RatePerSecond limits batches per second; 0 disables throttling
	RatePerSecond float64
	Burst         int
	// Collections restricts DeliverDataset; empty means all four
	Collections []model.Collection
}

// Deliverer splits record sequences into bounded batches and hands them to a
// sink. A failed batch is recorded and never stops the remaining batches.
type Deliverer struct {
	batchSize   int
	limiter     *rate.Limiter
	collections []model.Collection
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// New creates a deliverer. collector may be nil.
func New(cfg Config, collector *metrics.Collector, logger *zap.Logger) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	d := &Deliverer{
		batchSize: cfg.BatchSize,
		metrics:   collector,
		logger:    logger,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	// Dataset order is fixed regardless of how the filter was written
	wanted := make(map[model.Collection]bool, len(cfg.Collections))
	for _, c := range cfg.Collections {
		wanted[c] = true
	}
	for _, c := range model.Collections {
		if len(wanted) == 0 || wanted[c] {
			d.collections = append(d.collections, c)
		}
	}

	return d
}

// BatchSize returns the configured batch size
func (d *Deliverer) BatchSize() int {
	return d.batchSize
}

// Deliver sends records of one collection to s in batches
func (d *Deliverer) Deliver(ctx context.Context, s sink.Sink, collection model.Collection, records []model.Record) *CollectionReport {
	report := &CollectionReport{Collection: collection, Records: len(records)}

	for index, start := 0, 0; start < len(records); index, start = index+1, start+d.batchSize {
		end := start + d.batchSize
		if end > len(records) {
			end = len(records)
		}
		report.add(d.deliverBatch(ctx, s, collection, index, records[start:end]))
	}

	d.logger.Info("Collection delivered",
		zap.String("sink", s.Name()),
		zap.String("collection", string(collection)),
		zap.Int("records", report.Records),
		zap.Int("inserted", report.Inserted),
		zap.Int("failed", report.Failed),
		zap.Int("batches", len(report.Batches)),
		zap.Int("failed_batches", report.FailedBatches))

	return report
}

func (d *Deliverer) deliverBatch(ctx context.Context, s sink.Sink, collection model.Collection, index int, batch []model.Record) BatchReport {
	br := BatchReport{
		ID:    uuid.NewString(),
		Index: index,
		Size:  len(batch),
	}

	ctx, span := tracing.TraceBatch(ctx, s.Name(), string(collection), br.ID, index, len(batch))
	defer span.End()
	logger := tracing.ContextLogger(ctx, d.logger)

	start := time.Now()
	result, err := d.send(ctx, s, collection, batch)
	br.Duration = time.Since(start)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "failed"
		br.Failed = len(batch)
		br.Error = err.Error()
		tracing.RecordError(span, err)
		logger.Warn("Batch delivery failed",
			zap.String("sink", s.Name()),
			zap.String("collection", string(collection)),
			zap.String("batch_id", br.ID),
			zap.Int("batch_index", index),
			zap.Int("size", len(batch)),
			zap.Error(err))

	default:
		br.Inserted = result.InsertedCount
		br.Failed = result.FailedCount
		if result.FailedCount > 0 {
			outcome = "partial"
			for _, f := range result.FailedRecords {
				logger.Debug("Record rejected",
					zap.String("collection", string(collection)),
					zap.String("batch_id", br.ID),
					zap.Int("index", f.Index),
					zap.String("error", f.Error))
			}
		}
	}

	span.SetAttributes(
		attribute.String("batch.outcome", outcome),
		attribute.Int("batch.inserted", br.Inserted),
		attribute.Int("batch.failed", br.Failed),
	)
	d.observe(s.Name(), collection, outcome, br)

	return br
}

func (d *Deliverer) send(ctx context.Context, s sink.Sink, collection model.Collection, batch []model.Record) (*model.BatchResult, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.BatchInsert(ctx, collection, batch)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("sink %s returned no result", s.Name())
	}
	return result, nil
}

func (d *Deliverer) observe(sinkName string, collection model.Collection, outcome string, br BatchReport) {
	if d.metrics == nil {
		return
	}
	c := string(collection)
	d.metrics.BatchesDelivered.WithLabelValues(sinkName, c, outcome).Inc()
	d.metrics.RecordsInserted.WithLabelValues(sinkName, c).Add(float64(br.Inserted))
	d.metrics.RecordsFailed.WithLabelValues(sinkName, c).Add(float64(br.Failed))
	d.metrics.DeliveryLatency.WithLabelValues(sinkName, c).Observe(br.Duration.Seconds())
}

// DeliverDataset delivers every selected collection of ds in the order
// payments, auth_logs, disputes, kyc_events
func (d *Deliverer) DeliverDataset(ctx context.Context, s sink.Sink, ds *generator.Dataset) *Report {
	start := time.Now()
	report := &Report{Sink: s.Name()}

	for _, c := range d.collections {
		report.Collections = append(report.Collections, d.Deliver(ctx, s, c, ds.Records(c)))
	}

	report.Duration = time.Since(start)
	inserted, failed := report.Totals()
	d.logger.Info("Dataset delivered",
		zap.String("sink", s.Name()),
		zap.Int("inserted", inserted),
		zap.Int("failed", failed),
		zap.Duration("duration", report.Duration))

	return report
}
