package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/config"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/metrics"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/sink"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/store"
	"go.uber.org/zap"
)

type testServer struct {
	*httptest.Server
	store   *store.MemoryStore
	metrics *metrics.Collector
}

func newTestServer(t *testing.T, maxBatch int) *testServer {
	t.Helper()

	st := store.NewMemoryStore(zap.NewNop())
	collector := metrics.NewCollector(zap.NewNop())
	cfg := config.DefaultConfig().API
	cfg.MaxBatchSize = maxBatch

	srv, err := NewServer(cfg, st, collector, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: st, metrics: collector}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func payment(id int64) model.Transaction {
	return model.Transaction{
		MessageID:       id,
		CardNumberToken: "tok-1",
		MerchantID:      3,
		DeviceID:        4,
		Amount:          decimal.RequireFromString("99.95"),
		Currency:        "EUR",
		MCC:             5999,
		Channel:         "Online",
		Country:         "DE",
		ResponseCode:    "00",
		AuthCode:        "A1B2C3",
		ISOMessageHex:   "0100",
		GatewayProvider: "Adyen",
		Status:          model.StatusApproved,
		RiskScore:       12,
		IPAddress:       "10.0.0.1",
		Timestamp:       time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func dispute(id int64) model.Dispute {
	return model.Dispute{
		DisputeID:        id,
		TransactionID:    11,
		CustomerID:       2,
		MerchantID:       3,
		Amount:           decimal.RequireFromString("10"),
		Currency:         "USD",
		Timestamp:        time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC),
		ReasonCode:       model.ReasonFriendlyFraud,
		Stage:            model.StageInvestigation,
		Status:           model.DisputeOpen,
		EvidenceProvided: model.EvidenceNo,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, body := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status      string         `json:"status"`
		Collections map[string]int `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Collections, 4)
}

func TestCRUD(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, _ := ts.do(t, http.MethodPost, "/api/payments", payment(1))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/api/payments", payment(1))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "duplicate")

	resp, body = ts.do(t, http.MethodGet, "/api/payments/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "EUR", got["currency"])

	resp, body = ts.do(t, http.MethodPatch, "/api/payments/1", `{"status":"declined","risk_score":88}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	rec, err := ts.store.Get(context.Background(), model.CollectionPayments, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeclined, rec.(model.Transaction).Status)
	assert.Equal(t, 88, rec.(model.Transaction).RiskScore)

	resp, _ = ts.do(t, http.MethodDelete, "/api/payments/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/payments/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t, 0)
	require.NoError(t, ts.store.Create(context.Background(), dispute(5)))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{name: "unknown collection", method: http.MethodGet, path: "/api/orders", status: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/api/disputes/abc", status: http.StatusBadRequest},
		{name: "missing record", method: http.MethodDelete, path: "/api/disputes/6", status: http.StatusNotFound},
		{name: "unknown patch field", method: http.MethodPatch, path: "/api/disputes/5", body: `{"color":"red"}`, status: http.StatusBadRequest},
		{name: "primary key patch", method: http.MethodPatch, path: "/api/disputes/5", body: `{"dispute_id":9}`, status: http.StatusBadRequest},
		{name: "bad patch value", method: http.MethodPatch, path: "/api/disputes/5", body: `{"resolution_timestamp":"yesterday"}`, status: http.StatusBadRequest},
		{name: "empty patch", method: http.MethodPatch, path: "/api/disputes/5", body: `{}`, status: http.StatusBadRequest},
		{name: "invalid document", method: http.MethodPost, path: "/api/disputes", body: `{"dispute_id":0}`, status: http.StatusBadRequest},
		{name: "negative limit", method: http.MethodGet, path: "/api/disputes?limit=-1", status: http.StatusBadRequest},
		{name: "batch not an array", method: http.MethodPost, path: "/api/disputes/batch", body: `{"a":1}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestPatchResolvesDispute(t *testing.T) {
	ts := newTestServer(t, 0)
	require.NoError(t, ts.store.Create(context.Background(), dispute(5)))

	resp, body := ts.do(t, http.MethodPatch, "/api/disputes/5",
		`{"status":"Closed","resolution_timestamp":"2023-06-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Closed", got["status"])
	assert.Equal(t, "2023-06-01T00:00:00Z", got["resolution_timestamp"])
}

func TestList(t *testing.T) {
	ts := newTestServer(t, 0)
	for id := int64(1); id <= 5; id++ {
		require.NoError(t, ts.store.Create(context.Background(), payment(id)))
	}

	resp, body := ts.do(t, http.MethodGet, "/api/payments?offset=1&limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Total   int                      `json:"total"`
		Records []map[string]interface{} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 5, list.Total)
	require.Len(t, list.Records, 2)
	assert.Equal(t, float64(2), list.Records[0]["message_id"])
	assert.Equal(t, float64(3), list.Records[1]["message_id"])

	resp, body = ts.do(t, http.MethodGet, "/api/auth_logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"records":[]`)
}

func TestBatchPartialSuccess(t *testing.T) {
	ts := newTestServer(t, 0)
	require.NoError(t, ts.store.Create(context.Background(), payment(2)))

	body := fmt.Sprintf(`[%s, %s, {"message_id": 3}, %s]`,
		mustJSON(t, payment(1)), mustJSON(t, payment(2)), mustJSON(t, payment(4)))

	resp, raw := ts.do(t, http.MethodPost, "/api/payments/batch", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var result struct {
		InsertedCount int `json:"inserted_count"`
		FailedCount   int `json:"failed_count"`
		FailedRecords []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"failed_records"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 2, result.FailedCount)
	require.Len(t, result.FailedRecords, 2)
	assert.Equal(t, 1, result.FailedRecords[0].Index)
	assert.Contains(t, result.FailedRecords[0].Error, "duplicate")
	assert.Equal(t, 2, result.FailedRecords[1].Index)
	assert.Contains(t, result.FailedRecords[1].Error, "schema validation failed")

	assert.Equal(t, 3, ts.store.Count(model.CollectionPayments))
	assert.Equal(t, 3.0, testutil.ToFloat64(ts.metrics.StoreRecords.WithLabelValues("payments")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.APIRequests.WithLabelValues("POST", "/api/{collection}/batch", "201")))
}

func TestBatchLimit(t *testing.T) {
	ts := newTestServer(t, 1)

	body := fmt.Sprintf(`[%s, %s]`, mustJSON(t, payment(1)), mustJSON(t, payment(2)))
	resp, _ := ts.do(t, http.MethodPost, "/api/payments/batch", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Zero(t, ts.store.Count(model.CollectionPayments))
}

func TestHTTPSinkAgainstServer(t *testing.T) {
	ts := newTestServer(t, 0)

	s, err := sink.NewHTTPSink(sink.HTTPSinkConfig{BaseURL: ts.URL}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	records := []model.Record{dispute(1), dispute(2), dispute(1)}
	result, err := s.BatchInsert(context.Background(), model.CollectionDisputes, records)
	require.NoError(t, err)

	assert.Equal(t, 2, result.InsertedCount)
	require.Len(t, result.FailedRecords, 1)
	assert.Equal(t, 2, result.FailedRecords[0].Index)
	assert.Equal(t, int64(1), result.FailedRecords[0].Record.RecordID())
}

func TestWebSocketIngest(t *testing.T) {
	ts := newTestServer(t, 0)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/disputes"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON([]model.Record{dispute(1), dispute(1)}))
	var ack struct {
		InsertedCount int    `json:"inserted_count"`
		FailedCount   int    `json:"failed_count"`
		Error         string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, 1, ack.InsertedCount)
	assert.Equal(t, 1, ack.FailedCount)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	ack.Error = ""
	require.NoError(t, conn.ReadJSON(&ack))
	assert.NotEmpty(t, ack.Error)
}

func TestWebSocketSinkAgainstServer(t *testing.T) {
	ts := newTestServer(t, 0)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	s, err := sink.NewWebSocketSink(sink.WebSocketSinkConfig{URL: url}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	result, err := s.BatchInsert(context.Background(), model.CollectionPayments, []model.Record{payment(1), payment(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 2, ts.store.Count(model.CollectionPayments))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
