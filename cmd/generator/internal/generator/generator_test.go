package generator_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/generator/internal/generator"
	"github.com/shubham-shewale/tickstream/cmd/generator/internal/testutils"
	"github.com/shubham-shewale/tickstream/pkg/models"
	pkgtestutils "github.com/shubham-shewale/tickstream/pkg/testutils"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

// pump advances the fake clock until cond holds or the deadline passes.
func pump(clock *pkgtestutils.MockClock, cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		clock.Advance(time.Second)
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func decode(t *testing.T, msgs []kafka.Message) []models.Stock {
	t.Helper()
	out := make([]models.Stock, 0, len(msgs))
	for _, m := range msgs {
		var tick models.Stock
		if err := json.Unmarshal(m.Value, &tick); err != nil {
			t.Fatalf("Generated invalid JSON: %v", err)
		}
		if string(m.Key) != tick.Ticker {
			t.Errorf("Key %s does not match ticker %s", m.Key, tick.Ticker)
		}
		out = append(out, tick)
	}
	return out
}

func TestFeedPublisher_PublishesEveryTicker(t *testing.T) {
	clock := pkgtestutils.NewMockClock(time.Unix(0, 0))
	gen := tickgen.NewGenerator(tickgen.DefaultConfig(), clock, pkgtestutils.FlatRand, zap.NewNop())
	writer := &testutils.MockKafkaWriter{}

	fp := generator.NewFeedPublisher(zap.NewNop(), writer, []string{"AAPL", "GOOG"}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fp.Run(ctx)
		close(done)
	}()

	seen := func() bool {
		got := map[string]bool{}
		for _, tick := range decode(t, writer.Snapshot()) {
			got[tick.Ticker] = true
		}
		return got["AAPL"] && got["GOOG"]
	}
	if !pump(clock, seen) {
		t.Fatal("Expected ticks for both tickers")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	first := decode(t, writer.Snapshot())[0]
	if first.Price != 25.0 {
		t.Errorf("Expected walk to start at 25.0, got %v", first.Price)
	}
}

func TestFeedPublisher_RestartsFinishedWalks(t *testing.T) {
	clock := pkgtestutils.NewMockClock(time.Unix(0, 0))
	// +9.985 per step: each walk is 9 samples long
	gen := tickgen.NewGenerator(tickgen.DefaultConfig(), clock, &pkgtestutils.MockRand{ValFloat: 0.999}, zap.NewNop())
	writer := &testutils.MockKafkaWriter{}

	fp := generator.NewFeedPublisher(zap.NewNop(), writer, []string{"TSLA"}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fp.Run(ctx)

	if !pump(clock, func() bool { return len(writer.Snapshot()) >= 12 }) {
		t.Fatalf("Expected a second walk, got %d ticks", len(writer.Snapshot()))
	}

	ticks := decode(t, writer.Snapshot())
	if ticks[8].Price <= 100.0 {
		t.Errorf("Ninth tick should cross the ceiling, got %v", ticks[8].Price)
	}
	if ticks[9].Price != 25.0 {
		t.Errorf("New walk should restart at 25.0, got %v", ticks[9].Price)
	}
}

func TestFeedPublisher_WriteErrorsAreSurvived(t *testing.T) {
	clock := pkgtestutils.NewMockClock(time.Unix(0, 0))
	gen := tickgen.NewGenerator(tickgen.DefaultConfig(), clock, pkgtestutils.FlatRand, zap.NewNop())
	writer := &testutils.MockKafkaWriter{ShouldFail: true}

	fp := generator.NewFeedPublisher(zap.NewNop(), writer, []string{"AAPL"}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fp.Run(ctx)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		time.Sleep(2 * time.Millisecond)
	}

	writer.Mu.Lock()
	writer.ShouldFail = false
	writer.Mu.Unlock()

	if !pump(clock, func() bool { return len(writer.Snapshot()) > 0 }) {
		t.Fatal("Publisher should keep going after Kafka errors")
	}
}

func TestTopicCreator_Flow(t *testing.T) {
	mockDialer := &testutils.MockKafkaDialer{}

	tc := generator.NewTopicCreator(zap.NewNop(), mockDialer, testutils.NoSleep)

	if !tc.Create(context.Background(), []string{"broker:9092"}, "my-topic", 4) {
		t.Error("Expected topic to be ready")
	}

	if mockDialer.ConnSpy == nil {
		t.Fatal("Dialer was never called")
	}
	if len(mockDialer.ConnSpy.CreatedTopics) == 0 {
		t.Fatal("No topics created")
	}
	if mockDialer.ConnSpy.CreatedTopics[0] != "my-topic" {
		t.Errorf("Expected topic 'my-topic', got %s", mockDialer.ConnSpy.CreatedTopics[0])
	}
	if mockDialer.ConnSpy.Partitions != 4 {
		t.Errorf("Expected 4 partitions, got %d", mockDialer.ConnSpy.Partitions)
	}
}

func TestTopicCreator_Unreachable(t *testing.T) {
	tc := generator.NewTopicCreator(zap.NewNop(), &testutils.MockKafkaDialer{Fail: true}, testutils.NoSleep)

	if tc.Create(context.Background(), []string{"a:9092", "b:9092"}, "t", 1) {
		t.Error("Expected failure when no broker answers")
	}
}

func TestTopicCreator_NeverReady(t *testing.T) {
	dialer := &testutils.MockKafkaDialer{ConnSpy: &testutils.MockKafkaConn{NotReady: true}}
	tc := generator.NewTopicCreator(zap.NewNop(), dialer, testutils.NoSleep)

	if tc.Create(context.Background(), []string{"broker:9092"}, "t", 1) {
		t.Error("Expected timeout when topic has no partitions")
	}
}
