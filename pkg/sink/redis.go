package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// RedisSinkConfig holds Redis sink configuration
type RedisSinkConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisSink stores each record as a hash at <prefix>:<collection>:<id> and
// indexes ids in the sorted set <prefix>:<collection>:ids
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSink connects to Redis
func NewRedisSink(ctx context.Context, cfg RedisSinkConfig, logger *zap.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis sink initialized",
		zap.String("address", cfg.Address),
		zap.String("key_prefix", cfg.KeyPrefix))

	return &RedisSink{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (r *RedisSink) Name() string { return "redis" }

// Key returns the hash key of a record
func (r *RedisSink) Key(collection model.Collection, id int64) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, collection, id)
}

// IndexKey returns the sorted set of a collection's ids
func (r *RedisSink) IndexKey(collection model.Collection) string {
	return fmt.Sprintf("%s:%s:ids", r.prefix, collection)
}

// BatchInsert claims every key with HSETNX on the primary key field, then
// writes the remaining fields of the records that were new
func (r *RedisSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	pk := model.PrimaryKey(collection)
	if pk == "" {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}

	result := &model.BatchResult{}
	claims := make([]*redis.BoolCmd, len(records))

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, rec := range records {
			if rec.Collection() != collection {
				continue
			}
			claims[i] = pipe.HSetNX(ctx, r.Key(collection, rec.RecordID()), pk, rec.RecordID())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim keys: %w", err)
	}

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, rec := range records {
			switch {
			case claims[i] == nil:
				result.AddFailure(i, rec, fmt.Errorf("record belongs to %s", rec.Collection()))
				continue
			case !claims[i].Val():
				result.AddFailure(i, rec, fmt.Errorf("duplicate %s %d", pk, rec.RecordID()))
				continue
			}

			key := r.Key(collection, rec.RecordID())
			pipe.HSet(ctx, key, rec.Fields())
			pipe.ZAdd(ctx, r.IndexKey(collection), redis.Z{Score: float64(rec.RecordID()), Member: rec.RecordID()})
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			result.InsertedCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	return result, nil
}

// Close closes the Redis client
func (r *RedisSink) Close() error {
	return r.client.Close()
}
