package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/tickstream/cmd/generator/internal/generator"
)

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

// Snapshot copies the messages written so far.
func (m *MockKafkaWriter) Snapshot() []kafka.Message {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]kafka.Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}

type MockKafkaConn struct {
	CreatedTopics []string
	Partitions    int
	// NotReady makes ReadPartitions report no partitions
	NotReady bool
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
		m.Partitions = t.NumPartitions
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.NotReady {
		return nil, nil
	}
	return []kafka.Partition{{ID: 0}}, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Fail    bool
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (generator.KafkaConn, error) {
	if m.Fail {
		return nil, errors.New("connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// NoSleep skips topic readiness backoff in tests.
func NoSleep(time.Duration) {}
