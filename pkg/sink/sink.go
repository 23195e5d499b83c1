package sink

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// Sink receives batches of flat records for one collection at a time.
// Partial success is reported through the BatchResult; a non-nil error
// means the batch as a whole did not reach the destination.
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string
	BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error)
	Close() error
}

// Store is the part of the collection store a direct sink writes to
type Store interface {
	BatchInsert(ctx context.Context, c model.Collection, records []model.Record) (*model.BatchResult, error)
}

// DirectSink inserts batches straight into an in-process store
type DirectSink struct {
	store Store
}

// NewDirectSink creates a sink backed by store
func NewDirectSink(store Store) *DirectSink {
	return &DirectSink{store: store}
}

func (d *DirectSink) Name() string { return "direct" }

// BatchInsert forwards the batch to the store
func (d *DirectSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	return d.store.BatchInsert(ctx, collection, records)
}

func (d *DirectSink) Close() error { return nil }

// remoteResult is the JSON shape of a BatchResult returned by a remote
// collection API. Failed records are matched back to the submitted batch by
// index.
type remoteResult struct {
	InsertedCount int `json:"inserted_count"`
	FailedCount   int `json:"failed_count"`
	FailedRecords []struct {
		Index int    `json:"index"`
		Error string `json:"error"`
	} `json:"failed_records"`
	// Error is set when the remote rejected the batch as a whole
	Error string `json:"error,omitempty"`
}

func (r *remoteResult) toBatchResult(records []model.Record) *model.BatchResult {
	result := &model.BatchResult{InsertedCount: r.InsertedCount}
	for _, f := range r.FailedRecords {
		var rec model.Record
		if f.Index >= 0 && f.Index < len(records) {
			rec = records[f.Index]
		}
		result.FailedCount++
		result.FailedRecords = append(result.FailedRecords, model.FailedRecord{Index: f.Index, Record: rec, Error: f.Error})
	}
	// Trust the remote count if it reported failures without details
	if r.FailedCount > result.FailedCount {
		result.FailedCount = r.FailedCount
	}
	return result
}

func marshalBatch(records []model.Record) ([]byte, error) {
	return json.Marshal(records)
}

func recordKey(rec model.Record) string {
	return strconv.FormatInt(rec.RecordID(), 10)
}
