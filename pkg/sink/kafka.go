package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/schema"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/tracing"
	"go.uber.org/zap"
)

// KafkaSinkConfig holds Kafka sink configuration
type KafkaSinkConfig struct {
	Brokers      []string
	TopicPrefix  string
	FlushTimeout time.Duration
	CodecManager *schema.CodecManager
}

// KafkaSink writes every record as an Avro encoded message keyed by its
// primary key, one topic per collection
type KafkaSink struct {
	producer     *kafka.Producer
	topicPrefix  string
	flushTimeout time.Duration
	codecManager *schema.CodecManager
	logger       *zap.Logger
}

// NewKafkaSink creates a new Kafka sink
func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no Kafka brokers specified")
	}
	if cfg.CodecManager == nil {
		return nil, fmt.Errorf("codec manager is required")
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = 30 * time.Second
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"acks":               "all",
		"enable.idempotence": true,
		"linger.ms":          5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	// Client level errors; delivery reports go to the per-batch channel
	go func() {
		for e := range producer.Events() {
			if kerr, ok := e.(kafka.Error); ok {
				logger.Error("Kafka producer error", zap.Error(kerr))
			}
		}
	}()

	logger.Info("Kafka sink initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix))

	return &KafkaSink{
		producer:     producer,
		topicPrefix:  cfg.TopicPrefix,
		flushTimeout: cfg.FlushTimeout,
		codecManager: cfg.CodecManager,
		logger:       logger,
	}, nil
}

func (k *KafkaSink) Name() string { return "kafka" }

// Topic returns the topic a collection is written to
func (k *KafkaSink) Topic(collection model.Collection) string {
	return k.topicPrefix + string(collection)
}

// BuildMessage encodes rec into a message for topic
func BuildMessage(ctx context.Context, codecManager *schema.CodecManager, topic string, rec model.Record) (*kafka.Message, error) {
	value, err := codecManager.EncodeRecord(ctx, topic, rec)
	if err != nil {
		return nil, err
	}

	carrier := make(map[string]string)
	tracing.InjectTraceContext(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier)+1)
	headers = append(headers, kafka.Header{Key: "collection", Value: []byte(rec.Collection())})
	for key, v := range carrier {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:     []byte(recordKey(rec)),
		Value:   value,
		Headers: headers,
	}, nil
}

// BatchInsert produces the batch and waits for every delivery report.
// Records that fail to encode or deliver are reported individually.
func (k *KafkaSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	topic := k.Topic(collection)
	result := &model.BatchResult{}
	deliveries := make(chan kafka.Event, len(records))

	pending := 0
	for i, rec := range records {
		msg, err := BuildMessage(ctx, k.codecManager, topic, rec)
		if err != nil {
			result.AddFailure(i, rec, err)
			continue
		}
		// Delivery reports carry the batch index back
		msg.Opaque = i

		if err := k.producer.Produce(msg, deliveries); err != nil {
			if pending == 0 && isFatalProduceError(err) {
				return nil, fmt.Errorf("failed to produce to %s: %w", topic, err)
			}
			result.AddFailure(i, rec, err)
			continue
		}
		pending++
	}

	timeout := time.NewTimer(k.flushTimeout)
	defer timeout.Stop()

	for pending > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, fmt.Errorf("timed out waiting for %d delivery reports on %s", pending, topic)
		case e := <-deliveries:
			msg, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			pending--
			i, _ := msg.Opaque.(int)
			if msg.TopicPartition.Error != nil {
				result.AddFailure(i, records[i], msg.TopicPartition.Error)
				continue
			}
			result.InsertedCount++
		}
	}

	return result, nil
}

func isFatalProduceError(err error) bool {
	kerr, ok := err.(kafka.Error)
	return ok && kerr.IsFatal()
}

// Close flushes outstanding messages and closes the producer
func (k *KafkaSink) Close() error {
	remaining := k.producer.Flush(int(k.flushTimeout / time.Millisecond))
	if remaining > 0 {
		k.logger.Warn("Messages still in queue", zap.Int("count", remaining))
	}
	k.logger.Info("Closing Kafka sink")
	k.producer.Close()
	return nil
}
