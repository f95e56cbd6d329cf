package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/processor/internal/processor"
	"github.com/shubham-shewale/tickstream/cmd/processor/internal/testutils"
	"github.com/shubham-shewale/tickstream/pkg/config"
	"github.com/shubham-shewale/tickstream/pkg/models"
)

func TestProcessor_EndToEnd_Flow(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sub := rdb.Subscribe(context.Background(), models.PriceChannel("GOOG"))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	tick := models.Stock{Ticker: "GOOG", Price: 101.25, TimestampMillis: 100}
	val, _ := json.Marshal(tick)

	// Mock Reader because a real Kafka is too heavy for unit tests
	mockReader := &testutils.MockKafkaReader{Messages: []kafka.Message{{Key: []byte("GOOG"), Value: val}}}

	cfg := &config.Config{}
	cfg.Processor.NumWorkers = 1
	cfg.Processor.SnapshotTTL = 30 * time.Second

	proc := processor.NewProcessor(cfg, zap.NewNop(), processor.PipelineClient{Client: rdb}, mockReader)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()

	select {
	case msg := <-sub.Channel():
		if msg.Payload != string(val) {
			t.Errorf("Published payload mismatch.\nGot:  %s\nWant: %s", msg.Payload, val)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No tick published")
	}

	// Poll until the key appears (since processor is async)
	success := false
	for i := 0; i < 10; i++ {
		if mr.Exists(models.SnapshotKey("GOOG")) {
			success = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !success {
		t.Fatal("Processor did not write stock:GOOG to Redis")
	}

	savedVal, _ := mr.Get(models.SnapshotKey("GOOG"))
	if savedVal != string(val) {
		t.Errorf("Redis value mismatch.\nGot:  %s\nWant: %s", savedVal, string(val))
	}
	if ttl := mr.TTL(models.SnapshotKey("GOOG")); ttl != 30*time.Second {
		t.Errorf("Expected 30s TTL, got %v", ttl)
	}

	cancel()
	<-done
}
