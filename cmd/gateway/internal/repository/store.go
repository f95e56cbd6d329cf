package repository

import (
	"context"
)

// SnapshotStore serves the latest bus price per ticker.
type SnapshotStore interface {
	GetSnapshots(ctx context.Context, tickers []string) ([]string, error)
	Close() error
}

type RateLimiter interface {
	Allow(key string) (bool, error)
}
