package testutils

import (
	"sync"
	"time"

	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

// MockClock only moves when Advance is called. Tickers fire like time.Ticker:
// one buffered slot, extra ticks dropped while the reader is behind.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) NewTicker(d time.Duration) tickgen.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &MockTicker{c: make(chan time.Time, 1), period: d, next: m.now.Add(d)}
	m.tickers = append(m.tickers, t)
	return t
}

func (m *MockClock) NewTimer(d time.Duration) tickgen.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &MockTicker{c: make(chan time.Time, 1), period: d, next: m.now.Add(d), oneShot: true}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves time forward and fires every ticker whose deadline passed.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	for _, t := range m.tickers {
		t.fire(m.now)
	}
}

// Tickers reports how many tickers and timers are still pending.
func (m *MockClock) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

type MockTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
	oneShot bool
}

func (t *MockTicker) C() <-chan time.Time { return t.c }

func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *MockTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *MockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for !t.next.After(now) {
		select {
		case t.c <- t.next:
		default:
		}
		if t.oneShot {
			t.stopped = true
			return
		}
		t.next = t.next.Add(t.period)
	}
}

// MockRand returns ValFloat forever.
type MockRand struct {
	ValFloat float64
}

func (m *MockRand) Float64() float64 { return m.ValFloat }

// FlatRand makes the default walk ([-5, 10)) stand still.
var FlatRand = &MockRand{ValFloat: 1.0 / 3.0}
