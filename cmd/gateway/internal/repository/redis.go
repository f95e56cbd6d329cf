package repository

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/tickstream/pkg/models"
)

// Compile-time check to ensure RedisStore implements SnapshotStore
var _ SnapshotStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// GetSnapshots fetches the latest tick for a list of tickers (MGET).
// Tickers the processor has not seen are skipped.
func (r *RedisStore) GetSnapshots(ctx context.Context, tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tickers))
	for i, t := range tickers {
		keys[i] = models.SnapshotKey(t)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
