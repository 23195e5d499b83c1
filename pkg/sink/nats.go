package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// NATSSinkConfig holds NATS sink configuration
type NATSSinkConfig struct {
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
}

// NATSSink publishes every record as JSON on <prefix>.<collection>
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATSSink connects to a NATS server
func NewNATSSink(cfg NATSSinkConfig, logger *zap.Logger) (*NATSSink, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("fraudsim"),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS sink initialized",
		zap.String("url", cfg.URL),
		zap.String("subject_prefix", cfg.SubjectPrefix))

	return &NATSSink{conn: conn, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

func (n *NATSSink) Name() string { return "nats" }

// Subject returns the subject a collection is published on
func Subject(prefix string, collection model.Collection) string {
	if prefix == "" {
		return string(collection)
	}
	return prefix + "." + string(collection)
}

// BatchInsert publishes the batch and flushes, so a nil error means the
// server received every message
func (n *NATSSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	subject := Subject(n.prefix, collection)
	result := &model.BatchResult{}

	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			result.AddFailure(i, rec, err)
			continue
		}
		msg := nats.NewMsg(subject)
		msg.Data = data
		msg.Header.Set("Nats-Msg-Id", fmt.Sprintf("%s-%d", collection, rec.RecordID()))

		if err := n.conn.PublishMsg(msg); err != nil {
			return nil, fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		result.InsertedCount++
	}

	if err := n.conn.FlushWithContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	return result, nil
}

// Close drains the connection
func (n *NATSSink) Close() error {
	return n.conn.Drain()
}
