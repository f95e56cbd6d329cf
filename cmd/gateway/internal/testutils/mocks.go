package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/tickstream/pkg/models"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

// MockClient simulates a connected websocket client. Followed sequences are
// streamed into Ticks until the next Follow or Close.
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse
	Follows  int
	Closed   bool
	Ticks    chan models.Stock
	Mu       sync.Mutex

	cancel context.CancelFunc
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0), Ticks: make(chan models.Stock, 64)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *MockClient) Follow(seq tickgen.Sequence) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Follows++
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go func(ticks <-chan models.Stock) {
		for tick := range ticks {
			select {
			case m.Ticks <- tick:
			default:
			}
		}
	}(seq.Stream(ctx))
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) LastMsg() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	for i := len(m.Messages) - 1; i >= 0; i-- {
		if m.Messages[i].Type != protocol.TypeSnapshot {
			return m.Messages[i]
		}
	}
	return protocol.WSResponse{}
}

func (m *MockClient) CountType(typ string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, msg := range m.Messages {
		if msg.Type == typ {
			n++
		}
	}
	return n
}

func (m *MockClient) FollowCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Follows
}

// MockSnapshotStore simulates Redis
type MockSnapshotStore struct {
	Snapshots map[string]string
	Fail      bool
	Mu        sync.Mutex
}

func NewMockStore() *MockSnapshotStore {
	return &MockSnapshotStore{Snapshots: make(map[string]string)}
}

func (m *MockSnapshotStore) GetSnapshots(ctx context.Context, tickers []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return nil, errors.New("redis down")
	}
	var out []string
	for _, t := range tickers {
		if s, ok := m.Snapshots[t]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSnapshotStore) Close() error { return nil }

// MockLimiter allows the first Budget calls; a negative Budget allows all.
type MockLimiter struct {
	Budget int
	Mu     sync.Mutex
}

func (m *MockLimiter) Allow(key string) (bool, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Budget < 0 {
		return true, nil
	}
	if m.Budget == 0 {
		return false, nil
	}
	m.Budget--
	return true, nil
}
