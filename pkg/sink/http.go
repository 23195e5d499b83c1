package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ferrors "github.com/therealutkarshpriyadarshi/fraudsim/pkg/errors"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 1024

// HTTPSinkConfig holds HTTP sink configuration
type HTTPSinkConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPSink posts batches to a collection API at <base>/api/<collection>/batch
type HTTPSink struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPSink creates a new HTTP sink
func NewHTTPSink(cfg HTTPSinkConfig, logger *zap.Logger) (*HTTPSink, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPSink{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

func (h *HTTPSink) Name() string { return "http" }

// BatchURL returns the endpoint a collection's batches are posted to
func (h *HTTPSink) BatchURL(collection model.Collection) string {
	return fmt.Sprintf("%s/api/%s/batch", h.baseURL, collection)
}

// BatchInsert posts the batch as a JSON array. Any status other than 201 is
// a failure of the whole batch.
func (h *HTTPSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	body, err := marshalBatch(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BatchURL(collection), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ferrors.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var remote remoteResult
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		// The batch was accepted; the summary is just unreadable
		h.logger.Warn("Failed to decode batch response, assuming full success",
			zap.String("collection", string(collection)),
			zap.Error(err))
		return &model.BatchResult{InsertedCount: len(records)}, nil
	}

	return remote.toBatchResult(records), nil
}

// Close releases idle connections
func (h *HTTPSink) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
