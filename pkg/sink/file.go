package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// FileSink appends batches to one CSV file per collection. The header row is
// written when a file is first created.
type FileSink struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	files map[model.Collection]*csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// NewFileSink creates a CSV sink writing into dir
func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{
		dir:    dir,
		logger: logger,
		files:  make(map[model.Collection]*csvFile),
	}, nil
}

func (s *FileSink) Name() string { return "file" }

// Path returns the CSV file of a collection
func (s *FileSink) Path(collection model.Collection) string {
	return filepath.Join(s.dir, string(collection)+".csv")
}

func (s *FileSink) open(collection model.Collection) (*csvFile, error) {
	if cf, ok := s.files[collection]; ok {
		return cf, nil
	}

	columns := model.Columns(collection)
	if columns == nil {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}

	path := s.Path(collection)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if stat.Size() == 0 {
		if err := cf.w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	s.files[collection] = cf
	s.logger.Debug("Opened CSV output", zap.String("path", path))
	return cf, nil
}

// BatchInsert appends one row per record in column order
func (s *FileSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cf, err := s.open(collection)
	if err != nil {
		return nil, err
	}

	columns := model.Columns(collection)
	result := &model.BatchResult{}
	row := make([]string, len(columns))

	for i, rec := range records {
		if rec.Collection() != collection {
			result.AddFailure(i, rec, fmt.Errorf("record belongs to %s", rec.Collection()))
			continue
		}
		fields := rec.Fields()
		for j, col := range columns {
			row[j] = fmt.Sprint(fields[col])
		}
		if err := cf.w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
		result.InsertedCount++
	}

	cf.w.Flush()
	if err := cf.w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", s.Path(collection), err)
	}

	return result, nil
}

// Close flushes and closes every open file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for c, cf := range s.files {
		cf.w.Flush()
		if err := cf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.files, c)
	}
	return firstErr
}
