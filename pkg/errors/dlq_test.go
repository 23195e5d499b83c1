package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

func sampleBatch(t *testing.T) *FailedBatch {
	t.Helper()
	records := []model.Record{
		model.AuthEvent{AuthEventID: 1, CustomerID: 7, AuthStatus: model.AuthStatusSuccess},
		model.AuthEvent{AuthEventID: 2, CustomerID: 7, AuthStatus: model.AuthStatusFailure},
	}
	return NewFailedBatch("http", model.CollectionAuthLogs, records, errors.New("connection refused"), 4)
}

func TestNewFailedBatch(t *testing.T) {
	b := sampleBatch(t)

	if b.ID == "" {
		t.Error("Expected a batch id")
	}
	if len(b.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(b.Rows))
	}
	if b.Rows[1]["auth_event_id"] != int64(2) {
		t.Errorf("Rows must keep record order, got %v", b.Rows[1]["auth_event_id"])
	}
	if b.FailureCategory != "retriable" {
		t.Errorf("Expected retriable category, got %s", b.FailureCategory)
	}
	if b.Attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", b.Attempts)
	}
}

func TestInMemoryDLQ(t *testing.T) {
	ctx := context.Background()
	dlq := NewInMemoryDLQ(2)

	first, second, third := sampleBatch(t), sampleBatch(t), sampleBatch(t)
	for _, b := range []*FailedBatch{first, second, third} {
		if err := dlq.Write(ctx, b); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	count, _ := dlq.Count(ctx)
	if count != 2 {
		t.Fatalf("Expected the oldest batch to be evicted, count=%d", count)
	}

	batches, _ := dlq.Read(ctx, 0)
	if batches[0].ID != second.ID || batches[1].ID != third.ID {
		t.Error("Expected the two newest batches in write order")
	}

	if err := dlq.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := dlq.Delete(ctx, second.ID); err == nil {
		t.Error("Expected an error deleting a missing batch")
	}

	limited, _ := dlq.Read(ctx, 1)
	if len(limited) != 1 || limited[0].ID != third.ID {
		t.Error("Expected only the remaining batch")
	}
}

func TestFileDLQ(t *testing.T) {
	ctx := context.Background()
	dlq, err := NewFileDLQ(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileDLQ: %v", err)
	}

	older := sampleBatch(t)
	older.FailureTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleBatch(t)
	newer.FailureTime = older.FailureTime.Add(time.Minute)

	if err := dlq.Write(ctx, newer); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := dlq.Write(ctx, older); err != nil {
		t.Fatalf("Write: %v", err)
	}

	batches, err := dlq.Read(ctx, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	if batches[0].ID != older.ID {
		t.Error("Expected batches ordered by failure time")
	}
	if batches[0].Collection != model.CollectionAuthLogs || len(batches[0].Rows) != 2 {
		t.Errorf("Batch did not survive the round trip: %+v", batches[0])
	}

	if err := dlq.Delete(ctx, older.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count, _ := dlq.Count(ctx)
	if count != 1 {
		t.Errorf("Expected 1 batch after delete, got %d", count)
	}
	if err := dlq.Delete(ctx, older.ID); err == nil {
		t.Error("Expected an error deleting a missing batch")
	}
}

func TestNullDLQ(t *testing.T) {
	ctx := context.Background()
	dlq := NewNullDLQ()

	if err := dlq.Write(ctx, sampleBatch(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	count, _ := dlq.Count(ctx)
	if count != 0 {
		t.Errorf("NullDLQ must not keep batches, count=%d", count)
	}
}
