package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ferrors "github.com/therealutkarshpriyadarshi/fraudsim/pkg/errors"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

func payments(ids ...int64) []model.Record {
	out := make([]model.Record, len(ids))
	for i, id := range ids {
		out[i] = model.Transaction{
			MessageID:       id,
			CardNumberToken: "tok",
			Amount:          decimal.RequireFromString("12.30"),
			Currency:        "USD",
			MCC:             5411,
			Status:          model.StatusApproved,
			Timestamp:       time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC),
		}
	}
	return out
}

func TestDirectSink(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(zap.NewNop())
	s := NewDirectSink(st)
	assert.Equal(t, "direct", s.Name())

	result, err := s.BatchInsert(ctx, model.CollectionPayments, payments(1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, 2, st.Count(model.CollectionPayments))
	assert.NoError(t, s.Close())
}

func TestRemoteResultMapsFailuresByIndex(t *testing.T) {
	records := payments(1, 2, 3)
	var remote remoteResult
	require.NoError(t, json.Unmarshal([]byte(`{"inserted_count":2,"failed_count":1,"failed_records":[{"index":1,"error":"duplicate"}]}`), &remote))

	result := remote.toBatchResult(records)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.FailedRecords, 1)
	assert.Equal(t, int64(2), result.FailedRecords[0].Record.RecordID())
	assert.Equal(t, "duplicate", result.FailedRecords[0].Error)
}

func TestHTTPSink(t *testing.T) {
	var gotPath string
	var gotBody []map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"inserted_count":2,"failed_count":0}`))
	}))
	defer server.Close()

	s, err := NewHTTPSink(HTTPSinkConfig{BaseURL: server.URL + "/"}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	result, err := s.BatchInsert(context.Background(), model.CollectionPayments, payments(1, 2))
	require.NoError(t, err)

	assert.Equal(t, "/api/payments/batch", gotPath)
	require.Len(t, gotBody, 2)
	assert.Equal(t, float64(1), gotBody[0]["message_id"])
	assert.Equal(t, "USD", gotBody[0]["currency"])
	assert.Equal(t, 2, result.InsertedCount)
}

func TestHTTPSinkNon201IsBatchFailure(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retriable bool
	}{
		{name: "server error", status: http.StatusInternalServerError, retriable: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, retriable: true},
		{name: "bad request", status: http.StatusBadRequest, retriable: false},
		{name: "ok instead of created", status: http.StatusOK, retriable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			s, err := NewHTTPSink(HTTPSinkConfig{BaseURL: server.URL}, zap.NewNop())
			require.NoError(t, err)

			result, err := s.BatchInsert(context.Background(), model.CollectionDisputes, nil)
			require.Error(t, err)
			assert.Nil(t, result)

			var statusErr *ferrors.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Body)
			assert.Equal(t, tt.retriable, ferrors.IsRetriable(err))
		})
	}
}

func TestHTTPSinkRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPSink(HTTPSinkConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestFileSinkWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileSink(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = s.BatchInsert(ctx, model.CollectionPayments, payments(1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A new sink appends to the existing file
	s, err = NewFileSink(dir, zap.NewNop())
	require.NoError(t, err)
	result, err := s.BatchInsert(ctx, model.CollectionPayments, append(payments(2), model.KYCEvent{KYCEventID: 1}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, 1, result.InsertedCount)
	assert.Equal(t, 1, result.FailedCount)

	data, err := os.ReadFile(filepath.Join(dir, "payments.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(model.Columns(model.CollectionPayments), ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,tok,"))
	assert.Contains(t, lines[1], ",12.30,USD,5411,")
	assert.True(t, strings.HasSuffix(lines[2], ",2023-04-05T06:07:08Z"))
}

func TestFileSinkUnknownCollection(t *testing.T) {
	s, err := NewFileSink(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.BatchInsert(context.Background(), model.Collection("orders"), nil)
	assert.Error(t, err)
}
