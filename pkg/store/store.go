package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a record with the same id already exists
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownField is returned when a patch names a field that cannot be updated
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a patch value has the wrong type or format
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidRecord is returned for records that cannot be stored
	ErrInvalidRecord = errors.New("invalid record")
)

// SizeObserver is notified with the new size of a collection after every mutation
type SizeObserver func(c model.Collection, size int)

// MemoryStore keeps the four collections in memory, keyed by primary key
type MemoryStore struct {
	collections map[model.Collection]*collection
	logger      *zap.Logger
	observer    SizeObserver
}

type collection struct {
	mu      sync.RWMutex
	records map[int64]model.Record
}

// NewMemoryStore creates an empty store with every collection registered
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[model.Collection]*collection, len(model.Collections)),
		logger:      logger,
	}
	for _, c := range model.Collections {
		s.collections[c] = &collection{records: make(map[int64]model.Record)}
	}

	logger.Info("Memory store initialized", zap.Int("collections", len(s.collections)))

	return s
}

// SetSizeObserver installs fn as the size observer
func (s *MemoryStore) SetSizeObserver(fn SizeObserver) {
	s.observer = fn
}

func (s *MemoryStore) collection(c model.Collection) (*collection, error) {
	coll, ok := s.collections[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s", c)
	}
	return coll, nil
}

func (s *MemoryStore) notify(c model.Collection, size int) {
	if s.observer != nil {
		s.observer(c, size)
	}
}

// List returns up to limit records ordered by primary key starting at
// offset, plus the collection size. A limit <= 0 returns everything after
// offset.
func (s *MemoryStore) List(ctx context.Context, c model.Collection, offset, limit int) ([]model.Record, int, error) {
	_, span := tracing.TraceStoreOperation(ctx, "list", string(c))
	defer span.End()

	coll, err := s.collection(c)
	if err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		return nil, 0, fmt.Errorf("negative offset %d: %w", offset, ErrInvalidValue)
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	ids := make([]int64, 0, len(coll.records))
	for id := range coll.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := len(ids)
	if offset >= total {
		return []model.Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]model.Record, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, coll.records[id])
	}
	return out, total, nil
}

// Get returns the record with primary key id
func (s *MemoryStore) Get(ctx context.Context, c model.Collection, id int64) (model.Record, error) {
	_, span := tracing.TraceStoreOperation(ctx, "get", string(c))
	defer span.End()

	coll, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	rec, ok := coll.records[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", c, id, ErrNotFound)
	}
	return rec, nil
}

// Create inserts a single record
func (s *MemoryStore) Create(ctx context.Context, rec model.Record) error {
	_, span := tracing.TraceStoreOperation(ctx, "create", string(rec.Collection()))
	defer span.End()

	coll, err := s.collection(rec.Collection())
	if err != nil {
		return err
	}

	coll.mu.Lock()
	err = coll.insert(rec)
	size := len(coll.records)
	coll.mu.Unlock()

	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	s.notify(rec.Collection(), size)
	return nil
}

// insert requires coll.mu held for writing
func (coll *collection) insert(rec model.Record) error {
	id := rec.RecordID()
	if id <= 0 {
		return fmt.Errorf("%s id %d must be positive: %w", rec.Collection(), id, ErrInvalidRecord)
	}
	if _, exists := coll.records[id]; exists {
		return fmt.Errorf("%s %d: %w", rec.Collection(), id, ErrDuplicate)
	}
	coll.records[id] = rec
	return nil
}

// BatchInsert inserts records one by one. Rejected records are reported in
// the result and do not prevent the others from being stored.
func (s *MemoryStore) BatchInsert(ctx context.Context, c model.Collection, records []model.Record) (*model.BatchResult, error) {
	_, span := tracing.TraceStoreOperation(ctx, "batch_insert", string(c))
	defer span.End()

	coll, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	result := &model.BatchResult{}

	coll.mu.Lock()
	for i, rec := range records {
		if rec.Collection() != c {
			result.AddFailure(i, rec, fmt.Errorf("record belongs to %s: %w", rec.Collection(), ErrInvalidRecord))
			continue
		}
		if err := coll.insert(rec); err != nil {
			result.AddFailure(i, rec, err)
			continue
		}
		result.InsertedCount++
	}
	size := len(coll.records)
	coll.mu.Unlock()

	if result.FailedCount > 0 {
		s.logger.Debug("Batch insert rejected records",
			zap.String("collection", string(c)),
			zap.Int("inserted", result.InsertedCount),
			zap.Int("failed", result.FailedCount))
	}

	s.notify(c, size)
	return result, nil
}

// Update applies patch to the record with primary key id and returns the
// updated record. The patch is applied atomically: on any error the stored
// record is unchanged.
func (s *MemoryStore) Update(ctx context.Context, c model.Collection, id int64, patch map[string]interface{}) (model.Record, error) {
	_, span := tracing.TraceStoreOperation(ctx, "update", string(c))
	defer span.End()

	coll, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()

	rec, ok := coll.records[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", c, id, ErrNotFound)
	}

	updated, err := ApplyPatch(rec, patch)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	coll.records[id] = updated
	return updated, nil
}

// Delete removes and returns the record with primary key id
func (s *MemoryStore) Delete(ctx context.Context, c model.Collection, id int64) (model.Record, error) {
	_, span := tracing.TraceStoreOperation(ctx, "delete", string(c))
	defer span.End()

	coll, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	coll.mu.Lock()
	rec, ok := coll.records[id]
	if ok {
		delete(coll.records, id)
	}
	size := len(coll.records)
	coll.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%s %d: %w", c, id, ErrNotFound)
	}
	s.notify(c, size)
	return rec, nil
}

// Count returns the number of records in a collection
func (s *MemoryStore) Count(c model.Collection) int {
	coll, err := s.collection(c)
	if err != nil {
		return 0
	}
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return len(coll.records)
}

// Stats returns the size of every collection
func (s *MemoryStore) Stats() map[string]int {
	stats := make(map[string]int, len(s.collections))
	for _, c := range model.Collections {
		stats[string(c)] = s.Count(c)
	}
	return stats
}
