package processor

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Logger is the slice of *zap.Logger the read loop and workers log through.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// KafkaReader yields tick messages keyed by ticker, in partition order.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// RedisClient opens one pipeline per tick.
type RedisClient interface {
	Pipeline() Pipeliner
}

// Pipeliner carries the snapshot SET and the price PUBLISH in one round trip.
type Pipeliner interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Exec(ctx context.Context) ([]redis.Cmder, error)
}

// PipelineClient adapts a go-redis client to RedisClient.
type PipelineClient struct {
	Client redis.UniversalClient
}

func (c PipelineClient) Pipeline() Pipeliner { return c.Client.Pipeline() }
