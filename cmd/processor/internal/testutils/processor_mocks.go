package testutils

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/tickstream/cmd/processor/internal/processor"
)

// MockKafkaReader replays Messages once, then reports DeadlineExceeded so
// the processor's read loop winds down as if the bus went quiet.
type MockKafkaReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex
	// Closed simulates a closed connection or end of stream
	Closed bool
}

func (m *MockKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Closed {
		return kafka.Message{}, io.EOF
	}

	if m.Index >= len(m.Messages) {
		// End of test data; DeadlineExceeded stops the read loop cleanly
		return kafka.Message{}, context.DeadlineExceeded
	}

	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockPipeline records snapshot writes and price publishes per tick.
type MockPipeline struct {
	ExecCount    int
	RecordedCmds []string
	TTLs         []time.Duration
	FailExec     bool
	Mu           sync.Mutex
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "SET "+key)
	m.TTLs = append(m.TTLs, expiration)
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "PUBLISH "+channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailExec {
		return nil, errors.New("redis down")
	}
	m.ExecCount++
	return nil, nil
}

// MockRedisClient hands every worker the same recording pipeline.
type MockRedisClient struct {
	PipelineSpy *MockPipeline
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() processor.Pipeliner {
	return m.PipelineSpy
}

// Published lists the price channels written so far, in order.
func (m *MockRedisClient) Published() []string {
	m.PipelineSpy.Mu.Lock()
	defer m.PipelineSpy.Mu.Unlock()
	var out []string
	for _, cmd := range m.PipelineSpy.RecordedCmds {
		if ch, ok := strings.CutPrefix(cmd, "PUBLISH "); ok {
			out = append(out, ch)
		}
	}
	return out
}
