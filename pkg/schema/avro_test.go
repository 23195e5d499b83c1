package schema

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

func TestValidateAvroSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		wantErr bool
	}{
		{
			name: "valid simple record",
			schema: `{
				"type": "record",
				"name": "User",
				"fields": [
					{"name": "id", "type": "string"},
					{"name": "age", "type": "int"}
				]
			}`,
			wantErr: false,
		},
		{
			name:    "invalid schema - malformed JSON",
			schema:  `{invalid json`,
			wantErr: true,
		},
		{
			name: "invalid schema - missing record name",
			schema: `{
				"type": "record",
				"fields": [
					{"name": "id", "type": "string"}
				]
			}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAvroSchema(tt.schema)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollectionSchemasMatchColumns(t *testing.T) {
	for _, c := range model.Collections {
		t.Run(string(c), func(t *testing.T) {
			schemaStr, err := AvroSchema(c)
			require.NoError(t, err)
			require.NoError(t, ValidateAvroSchema(schemaStr))

			fields, err := GetAvroSchemaFields(schemaStr)
			require.NoError(t, err)
			assert.Equal(t, model.Columns(c), fields)
		})
	}

	_, err := AvroSchema(model.Collection("orders"))
	assert.Error(t, err)
}

func testTransaction() model.Transaction {
	return model.Transaction{
		MessageID:       7,
		CardNumberToken: "tok-7",
		MerchantID:      3,
		DeviceID:        11,
		Amount:          decimal.RequireFromString("42.50"),
		Currency:        "USD",
		MCC:             5411,
		Channel:         "POS",
		Country:         "US",
		ResponseCode:    model.ResponseApproved,
		AuthCode:        "A1B2C3",
		ISOMessageHex:   "0100",
		GatewayProvider: "Stripe",
		Status:          model.StatusApproved,
		RiskScore:       12,
		IPAddress:       "10.0.0.1",
		Timestamp:       time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCodecManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	registry := NewLocalRegistry()
	cm := NewCodecManager(registry, zap.NewNop())

	tx := testTransaction()
	encoded, err := cm.EncodeRecord(ctx, "fraudsim.payments", tx)
	require.NoError(t, err)

	assert.Equal(t, byte(0x0), encoded[0])
	id, err := SchemaID(encoded)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	decoded, err := cm.Decode(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(7), decoded["message_id"])
	assert.Equal(t, "42.50", decoded["amount"])
	assert.Equal(t, int64(5411), decoded["mcc"])
	assert.Equal(t, "2023-05-01T12:00:00Z", decoded["timestamp"])

	subjects, err := registry.GetSubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fraudsim.payments-value"}, subjects)

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["encodes"])
	assert.Equal(t, int64(1), stats["decodes"])
}

func TestCodecManagerEncodesOpenDispute(t *testing.T) {
	ctx := context.Background()
	cm := NewCodecManager(NewLocalRegistry(), zap.NewNop())

	d := model.Dispute{
		DisputeID:     1,
		TransactionID: 7,
		Amount:        decimal.NewFromInt(10),
		Timestamp:     time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC),
		Status:        model.DisputeOpen,
	}

	encoded, err := cm.EncodeRecord(ctx, "disputes", d)
	require.NoError(t, err)

	decoded, err := cm.Decode(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, "", decoded["resolution_timestamp"])
	assert.Equal(t, "10.00", decoded["amount"])
}

func TestDecodeRejectsBadFraming(t *testing.T) {
	cm := NewCodecManager(NewLocalRegistry(), zap.NewNop())

	_, err := cm.Decode(context.Background(), []byte{0x0, 0x1})
	assert.Error(t, err)

	_, err = cm.Decode(context.Background(), []byte{0x1, 0, 0, 0, 1, 2})
	assert.ErrorContains(t, err, "magic byte")

	// Unknown schema id
	_, err = cm.Decode(context.Background(), []byte{0x0, 0, 0, 0, 9, 2})
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestLocalRegistryVersions(t *testing.T) {
	ctx := context.Background()
	r := NewLocalRegistry()

	first, err := r.RegisterSchema(ctx, "a-value", authSchema, SchemaTypeAvro)
	require.NoError(t, err)
	again, err := r.RegisterSchema(ctx, "a-value", authSchema, SchemaTypeAvro)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	second, err := r.RegisterSchema(ctx, "a-value", kycSchema, SchemaTypeAvro)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.NotEqual(t, first.ID, second.ID)

	latest, err := r.GetLatestSchema(ctx, "a-value")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = r.GetLatestSchema(ctx, "missing")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestNewRegistryClientRequiresURL(t *testing.T) {
	_, err := NewRegistryClient(&Config{}, zap.NewNop())
	assert.Error(t, err)
}
