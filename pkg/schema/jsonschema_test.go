package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

func TestValidateJSONSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		wantErr bool
	}{
		{
			name: "valid simple schema",
			schema: `{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"age": {"type": "integer"}
				},
				"required": ["name"]
			}`,
			wantErr: false,
		},
		{
			name:    "invalid schema - malformed JSON",
			schema:  `{invalid`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONSchema(tt.schema)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecordJSONSchemaRequiredFields(t *testing.T) {
	schemaStr, err := RecordJSONSchema(model.CollectionDisputes)
	require.NoError(t, err)
	require.NoError(t, ValidateJSONSchema(schemaStr))

	required, err := GetRequiredFields(schemaStr)
	require.NoError(t, err)
	assert.Contains(t, required, "dispute_id")
	assert.NotContains(t, required, "resolution_timestamp")
	assert.Len(t, required, len(model.Columns(model.CollectionDisputes))-1)
}

func toDoc(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestValidatorAcceptsMarshaledRecords(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	resolved := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []model.Record{
		testTransaction(),
		model.AuthEvent{AuthEventID: 1, SessionID: 1, CustomerID: 1, DeviceID: 1, Timestamp: resolved},
		model.Dispute{DisputeID: 1, Amount: decimal.NewFromInt(5), Timestamp: resolved},
		model.Dispute{DisputeID: 2, Amount: decimal.NewFromInt(5), Timestamp: resolved, ResolutionTimestamp: &resolved},
		model.KYCEvent{KYCEventID: 1, CustomerID: 1, Timestamp: resolved},
	}

	for _, rec := range records {
		assert.NoError(t, v.Validate(rec.Collection(), toDoc(t, rec)), "%s %d", rec.Collection(), rec.RecordID())
	}
}

func TestValidatorRejectsInvalidDocuments(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(doc map[string]interface{})
		field  string
	}{
		{
			name:   "missing primary key",
			mutate: func(doc map[string]interface{}) { delete(doc, "message_id") },
			field:  "",
		},
		{
			name:   "non positive primary key",
			mutate: func(doc map[string]interface{}) { doc["message_id"] = 0 },
			field:  "/message_id",
		},
		{
			name:   "amount not decimal",
			mutate: func(doc map[string]interface{}) { doc["amount"] = "ten" },
			field:  "/amount",
		},
		{
			name:   "bad timestamp",
			mutate: func(doc map[string]interface{}) { doc["timestamp"] = "yesterday" },
			field:  "/timestamp",
		},
		{
			name:   "unknown field",
			mutate: func(doc map[string]interface{}) { doc["nickname"] = "x" },
			field:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := toDoc(t, testTransaction())
			tt.mutate(doc)

			err := v.Validate(model.CollectionPayments, doc)
			require.Error(t, err)

			var docErr *DocumentError
			require.ErrorAs(t, err, &docErr)
			require.NotEmpty(t, docErr.Errors)
			assert.Equal(t, tt.field, docErr.Errors[0].Field)
		})
	}
}

func TestValidatorNumericAmount(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := toDoc(t, testTransaction())
	doc["amount"] = 42.5
	assert.NoError(t, v.Validate(model.CollectionPayments, doc))

	assert.Error(t, v.ValidateRaw(model.CollectionPayments, []byte(`{`)))
	assert.Error(t, v.Validate(model.Collection("orders"), doc))
}
