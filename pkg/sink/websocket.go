package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// WebSocketSinkConfig holds WebSocket sink configuration
type WebSocketSinkConfig struct {
	// URL is the base endpoint; batches go to <URL>/<collection>
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// WebSocketSink sends each batch as one JSON array message and waits for
// the batch result acknowledgement. One connection is kept per collection.
type WebSocketSink struct {
	cfg    WebSocketSinkConfig
	dialer *websocket.Dialer
	logger *zap.Logger

	mu    sync.Mutex
	conns map[model.Collection]*websocket.Conn
}

// NewWebSocketSink creates a WebSocket sink. Connections are opened lazily.
func NewWebSocketSink(cfg WebSocketSinkConfig, logger *zap.Logger) (*WebSocketSink, error) {
	if !strings.HasPrefix(cfg.URL, "ws://") && !strings.HasPrefix(cfg.URL, "wss://") {
		return nil, fmt.Errorf("invalid WebSocket URL: %q", cfg.URL)
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &WebSocketSink{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger,
		conns:  make(map[model.Collection]*websocket.Conn),
	}, nil
}

func (w *WebSocketSink) Name() string { return "websocket" }

func (w *WebSocketSink) conn(ctx context.Context, collection model.Collection) (*websocket.Conn, error) {
	if c, ok := w.conns[collection]; ok {
		return c, nil
	}

	url := w.cfg.URL + "/" + string(collection)
	c, _, err := w.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	w.conns[collection] = c
	w.logger.Debug("WebSocket connection opened", zap.String("url", url))
	return c, nil
}

// drop closes a connection after an I/O error so the next batch redials
func (w *WebSocketSink) drop(collection model.Collection) {
	if c, ok := w.conns[collection]; ok {
		c.Close()
		delete(w.conns, collection)
	}
}

// BatchInsert writes the batch and reads the acknowledgement
func (w *WebSocketSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.conn(ctx, collection)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(w.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.SetWriteDeadline(deadline)
	c.SetReadDeadline(deadline)

	if err := c.WriteJSON(records); err != nil {
		w.drop(collection)
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}

	var ack remoteResult
	if err := c.ReadJSON(&ack); err != nil {
		w.drop(collection)
		return nil, fmt.Errorf("failed to read acknowledgement: %w", err)
	}
	if ack.Error != "" {
		return nil, errors.New(ack.Error)
	}

	return ack.toBatchResult(records), nil
}

// Close closes every open connection with a normal closure frame
func (w *WebSocketSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for collection, c := range w.conns {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.Close()
		delete(w.conns, collection)
	}
	return nil
}
