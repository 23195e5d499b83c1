package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// FailedBatch is a batch that could not be delivered after all retries
type FailedBatch struct {
	ID         string           `json:"id"`
	Sink       string           `json:"sink"`
	Collection model.Collection `json:"collection"`
	// Rows are the flattened records of the batch in their original order
	Rows []map[string]interface{} `json:"rows"`

	FailureReason   string    `json:"failure_reason"`
	FailureCategory string    `json:"failure_category"`
	FailureTime     time.Time `json:"failure_time"`
	Attempts        int       `json:"attempts"`
}

// NewFailedBatch captures a batch and the error that sank it
func NewFailedBatch(sink string, collection model.Collection, records []model.Record, err error, attempts int) *FailedBatch {
	rows := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Fields())
	}
	return &FailedBatch{
		ID:              uuid.NewString(),
		Sink:            sink,
		Collection:      collection,
		Rows:            rows,
		FailureReason:   err.Error(),
		FailureCategory: ClassifyError(err).String(),
		FailureTime:     time.Now().UTC(),
		Attempts:        attempts,
	}
}

// DeadLetterQueue keeps batches that failed delivery so they can be replayed
type DeadLetterQueue interface {
	// Write stores a failed batch
	Write(ctx context.Context, batch *FailedBatch) error
	// Read returns up to limit batches, oldest first (limit <= 0 means all)
	Read(ctx context.Context, limit int) ([]*FailedBatch, error)
	// Delete removes a batch by id
	Delete(ctx context.Context, id string) error
	// Count returns the number of stored batches
	Count(ctx context.Context) (int64, error)
	Close() error
}

// InMemoryDLQ is an in-memory implementation of DeadLetterQueue
type InMemoryDLQ struct {
	mu      sync.RWMutex
	batches []*FailedBatch
	maxSize int
}

// NewInMemoryDLQ creates a DLQ that drops its oldest batch once maxSize is
// reached (0 means unbounded)
func NewInMemoryDLQ(maxSize int) *InMemoryDLQ {
	return &InMemoryDLQ{maxSize: maxSize}
}

func (dlq *InMemoryDLQ) Write(ctx context.Context, batch *FailedBatch) error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	if dlq.maxSize > 0 && len(dlq.batches) >= dlq.maxSize {
		dlq.batches = dlq.batches[1:]
	}
	dlq.batches = append(dlq.batches, batch)
	return nil
}

func (dlq *InMemoryDLQ) Read(ctx context.Context, limit int) ([]*FailedBatch, error) {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()

	if limit <= 0 || limit > len(dlq.batches) {
		limit = len(dlq.batches)
	}
	result := make([]*FailedBatch, limit)
	copy(result, dlq.batches[:limit])
	return result, nil
}

func (dlq *InMemoryDLQ) Delete(ctx context.Context, id string) error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	for i, b := range dlq.batches {
		if b.ID == id {
			dlq.batches = append(dlq.batches[:i], dlq.batches[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("failed batch not found: %s", id)
}

func (dlq *InMemoryDLQ) Count(ctx context.Context) (int64, error) {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()
	return int64(len(dlq.batches)), nil
}

func (dlq *InMemoryDLQ) Close() error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	dlq.batches = nil
	return nil
}

// FileDLQ stores every failed batch as one JSON document in a directory
type FileDLQ struct {
	mu        sync.Mutex
	directory string
}

// NewFileDLQ creates the directory if needed
func NewFileDLQ(directory string) (*FileDLQ, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dlq directory: %w", err)
	}
	return &FileDLQ{directory: directory}, nil
}

func (dlq *FileDLQ) path(id string) string {
	return filepath.Join(dlq.directory, id+".json")
}

func (dlq *FileDLQ) Write(ctx context.Context, batch *FailedBatch) error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := os.WriteFile(dlq.path(batch.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch %s: %w", batch.ID, err)
	}
	return nil
}

func (dlq *FileDLQ) Read(ctx context.Context, limit int) ([]*FailedBatch, error) {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	entries, err := os.ReadDir(dlq.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to list dlq directory: %w", err)
	}

	var batches []*FailedBatch
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dlq.directory, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		var b FailedBatch
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", e.Name(), err)
		}
		batches = append(batches, &b)
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].FailureTime.Before(batches[j].FailureTime)
	})
	if limit > 0 && limit < len(batches) {
		batches = batches[:limit]
	}
	return batches, nil
}

func (dlq *FileDLQ) Delete(ctx context.Context, id string) error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	if err := os.Remove(dlq.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("failed batch not found: %s", id)
		}
		return err
	}
	return nil
}

func (dlq *FileDLQ) Count(ctx context.Context) (int64, error) {
	batches, err := dlq.Read(ctx, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(batches)), nil
}

func (dlq *FileDLQ) Close() error {
	return nil
}

// NullDLQ is a no-op DLQ that discards all batches
type NullDLQ struct{}

// NewNullDLQ creates a new null DLQ
func NewNullDLQ() *NullDLQ {
	return &NullDLQ{}
}

func (dlq *NullDLQ) Write(ctx context.Context, batch *FailedBatch) error { return nil }

func (dlq *NullDLQ) Read(ctx context.Context, limit int) ([]*FailedBatch, error) {
	return []*FailedBatch{}, nil
}

func (dlq *NullDLQ) Delete(ctx context.Context, id string) error { return nil }

func (dlq *NullDLQ) Count(ctx context.Context) (int64, error) { return 0, nil }

func (dlq *NullDLQ) Close() error { return nil }
