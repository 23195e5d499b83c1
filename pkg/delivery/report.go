package delivery

import (
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// BatchReport records the outcome of one batch
type BatchReport struct {
	ID       string        `json:"id"`
	Index    int           `json:"index"`
	Size     int           `json:"size"`
	Inserted int           `json:"inserted"`
	Failed   int           `json:"failed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the batch reached the sink
func (b BatchReport) OK() bool {
	return b.Error == ""
}

// CollectionReport aggregates the batches of one collection
type CollectionReport struct {
	Collection model.Collection `json:"collection"`
	Records    int              `json:"records"`
	Inserted   int              `json:"inserted"`
	Failed     int              `json:"failed"`
	// FailedBatches counts batches rejected as a whole
	FailedBatches int           `json:"failed_batches"`
	Batches       []BatchReport `json:"batches"`
}

func (c *CollectionReport) add(b BatchReport) {
	c.Batches = append(c.Batches, b)
	c.Inserted += b.Inserted
	c.Failed += b.Failed
	if !b.OK() {
		c.FailedBatches++
	}
}

// Report is the delivery summary of a dataset
type Report struct {
	Sink        string              `json:"sink"`
	Collections []*CollectionReport `json:"collections"`
	Duration    time.Duration       `json:"duration"`
}

// Totals sums inserted and failed records over all collections
func (r *Report) Totals() (inserted, failed int) {
	for _, c := range r.Collections {
		inserted += c.Inserted
		failed += c.Failed
	}
	return inserted, failed
}

// Collection returns the report of c, or nil if c was not delivered
func (r *Report) Collection(c model.Collection) *CollectionReport {
	for _, cr := range r.Collections {
		if cr.Collection == c {
			return cr
		}
	}
	return nil
}

// HasFailures reports whether any record or batch failed
func (r *Report) HasFailures() bool {
	_, failed := r.Totals()
	return failed > 0
}
