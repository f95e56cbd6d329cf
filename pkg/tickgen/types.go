package tickgen

import (
	"math/rand/v2"
	"time"

	"github.com/shubham-shewale/tickstream/pkg/config"
)

// for deterministic pacing in tests
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	// NewTimer fires once after d; its Stop is safe after firing.
	NewTimer(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Rand is swapped in tests for deterministic prices. Float64 returns a value
// in [0, 1) and is called from every running walk concurrently.
type Rand interface {
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time                   { return time.Now() }
func (RealClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
func (RealClock) NewTimer(d time.Duration) Ticker  { return realTimer{time.NewTimer(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop()               { r.t.Stop() }

// RealRand uses the runtime's concurrency-safe source.
type RealRand struct{}

func (RealRand) Float64() float64 { return rand.Float64() }

// Config shapes a random walk and its pacing.
type Config struct {
	Interval   time.Duration
	StartPrice float64
	MinDelta   float64
	MaxDelta   float64
	Ceiling    float64
	MaxSteps   int // 0 = unbounded
}

func DefaultConfig() Config {
	return Config{
		Interval:   time.Second,
		StartPrice: 25.0,
		MinDelta:   -5.0,
		MaxDelta:   10.0,
		Ceiling:    100.0,
	}
}

func ConfigFrom(c config.GeneratorConfig) Config {
	return Config{
		Interval:   c.Interval,
		StartPrice: c.StartPrice,
		MinDelta:   c.MinDelta,
		MaxDelta:   c.MaxDelta,
		Ceiling:    c.Ceiling,
		MaxSteps:   c.MaxSteps,
	}
}
