package model

import (
	"fmt"
	"time"
)

// Collection names a dataset produced by the generator and stored by a sink
type Collection string

const (
	CollectionPayments  Collection = "payments"
	CollectionAuthLogs  Collection = "auth_logs"
	CollectionDisputes  Collection = "disputes"
	CollectionKYCEvents Collection = "kyc_events"
)

// Collections lists every collection in delivery order
var Collections = []Collection{
	CollectionPayments,
	CollectionAuthLogs,
	CollectionDisputes,
	CollectionKYCEvents,
}

// ParseCollection validates a collection name
func ParseCollection(name string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection: %s", name)
}

// TimeLayout is the wire layout of every timestamp column
const TimeLayout = time.RFC3339

// Record is a flat row of one of the four collections
type Record interface {
	// Collection returns the collection the record belongs to
	Collection() Collection
	// RecordID returns the primary key
	RecordID() int64
	// Fields returns the record as column name -> value, using only
	// int64, string and bool values
	Fields() map[string]interface{}
}

// Columns returns the column order of a collection
func Columns(c Collection) []string {
	switch c {
	case CollectionPayments:
		return paymentColumns
	case CollectionAuthLogs:
		return authColumns
	case CollectionDisputes:
		return disputeColumns
	case CollectionKYCEvents:
		return kycColumns
	default:
		return nil
	}
}

// PrimaryKey returns the primary key column of a collection
func PrimaryKey(c Collection) string {
	cols := Columns(c)
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

// FormatTime renders a timestamp column value
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// FailedRecord pairs a rejected record with the reason it was rejected
type FailedRecord struct {
	// Index is the position of the record in the submitted batch
	Index  int    `json:"index"`
	Record Record `json:"record"`
	Error  string `json:"error"`
}

// BatchResult reports the outcome of a batch insert. Partial success is allowed.
type BatchResult struct {
	InsertedCount int            `json:"inserted_count"`
	FailedCount   int            `json:"failed_count"`
	FailedRecords []FailedRecord `json:"failed_records,omitempty"`
}

// AddFailure records a rejected record at position index of the batch
func (r *BatchResult) AddFailure(index int, rec Record, err error) {
	r.FailedCount++
	r.FailedRecords = append(r.FailedRecords, FailedRecord{Index: index, Record: rec, Error: err.Error()})
}

// AllFailed builds a result where every record failed with the same error
func AllFailed(records []Record, err error) *BatchResult {
	result := &BatchResult{}
	for i, rec := range records {
		result.AddFailure(i, rec, err)
	}
	return result
}
