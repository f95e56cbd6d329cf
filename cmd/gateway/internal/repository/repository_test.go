package repository_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/repository"
)

func TestRedisStore_GetSnapshots(t *testing.T) {
	mr := miniredis.RunT(t)
	store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	mr.Set("stock:AAPL", `{"ticker":"AAPL","price":42.5,"timestamp":1}`)

	snaps, err := store.GetSnapshots(context.Background(), []string{"AAPL", "TSLA"})
	if err != nil {
		t.Fatalf("GetSnapshots failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("Expected 1 snapshot (TSLA missing), got %d", len(snaps))
	}
	if snaps[0] != `{"ticker":"AAPL","price":42.5,"timestamp":1}` {
		t.Errorf("Unexpected snapshot %s", snaps[0])
	}

	snaps, err = store.GetSnapshots(context.Background(), nil)
	if err != nil || snaps != nil {
		t.Errorf("Expected no-op for empty input, got %v, %v", snaps, err)
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store := repository.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()
	mr.Close()

	if _, err := store.GetSnapshots(context.Background(), []string{"AAPL"}); err == nil {
		t.Error("Expected error with Redis down")
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := repository.NewLocalRateLimiter(0.001, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("c1"); !ok {
			t.Fatalf("Call %d should fit in the burst", i)
		}
	}
	if ok, _ := l.Allow("c1"); ok {
		t.Error("Third call should be limited")
	}
	if ok, _ := l.Allow("c2"); !ok {
		t.Error("Buckets must be per key")
	}
}

func TestLocalRateLimiter_Disabled(t *testing.T) {
	l := repository.NewLocalRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("c1"); !ok {
			t.Fatal("Limiter should be disabled")
		}
	}
}
