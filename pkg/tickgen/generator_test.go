package tickgen_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/pkg/models"
	"github.com/shubham-shewale/tickstream/pkg/testutils"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

const waitFor = 2 * time.Second

func recv(t *testing.T, ch <-chan models.Stock) models.Stock {
	t.Helper()
	select {
	case tick, ok := <-ch:
		require.True(t, ok, "stream closed early")
		return tick
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for tick")
	}
	return models.Stock{}
}

func assertQuiet(t *testing.T, ch <-chan models.Stock) {
	t.Helper()
	select {
	case tick, ok := <-ch:
		if ok {
			t.Fatalf("unexpected tick %+v", tick)
		}
		t.Fatal("stream closed unexpectedly")
	case <-time.After(20 * time.Millisecond):
	}
}

func assertClosed(t *testing.T, ch <-chan models.Stock) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close")
		}
	}
}

func newGenerator(clock tickgen.Clock, rnd tickgen.Rand) *tickgen.Generator {
	return tickgen.NewGenerator(tickgen.DefaultConfig(), clock, rnd, zap.NewNop())
}

func TestGenerator_Pacing(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	gen := newGenerator(clock, testutils.FlatRand)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := gen.Generate("AAPL").Stream(ctx)

	// nothing before the first full interval
	assertQuiet(t, ch)
	clock.Advance(500 * time.Millisecond)
	assertQuiet(t, ch)

	clock.Advance(500 * time.Millisecond)
	first := recv(t, ch)
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, 25.0, first.Price)
	assert.Equal(t, int64(1000), first.TimestampMillis)

	// exactly one sample per clock tick
	assertQuiet(t, ch)

	clock.Advance(time.Second)
	second := recv(t, ch)
	assert.GreaterOrEqual(t, second.TimestampMillis-first.TimestampMillis, int64(1000))
}

func TestGenerator_SlowConsumerKeepsSpacing(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	gen := newGenerator(clock, testutils.FlatRand)

	ctx, cancel := context.WithCancel(context.Background())
	ch := gen.Generate("MSFT").Stream(ctx)

	// Read every 1.5s so a pacer tick queues up behind each blocked send.
	var stamps []int64
	for step := 1; len(stamps) < 5 && step <= 400; step++ {
		clock.Advance(250 * time.Millisecond)
		time.Sleep(time.Millisecond)
		if step%6 != 0 {
			continue
		}
		select {
		case tick := <-ch:
			stamps = append(stamps, tick.TimestampMillis)
		case <-time.After(20 * time.Millisecond):
		}
	}
	require.Len(t, stamps, 5)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i]-stamps[i-1], int64(1000),
			"samples %d and %d stamped %d and %d", i-1, i, stamps[i-1], stamps[i])
	}

	cancel()
	assertClosed(t, ch)
	assert.Eventually(t, func() bool { return clock.Tickers() == 0 }, waitFor, 5*time.Millisecond)
}

func TestGenerator_DeliversCrossingSampleThenEnds(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	// delta ~ +9.985 per step
	gen := newGenerator(clock, &testutils.MockRand{ValFloat: 0.999})

	ch := gen.Generate("TSLA").Stream(context.Background())

	var prices []float64
loop:
	for len(prices) < 100 {
		clock.Advance(time.Second)
		select {
		case tick, ok := <-ch:
			if !ok {
				break loop
			}
			prices = append(prices, tick.Price)
		case <-time.After(waitFor):
			t.Fatal("timed out waiting for tick")
		}
	}
	require.Len(t, prices, 9)
	assert.Greater(t, prices[len(prices)-1], 100.0)
	for _, p := range prices[:len(prices)-1] {
		assert.LessOrEqual(t, p, 100.0)
	}
	assert.Eventually(t, func() bool { return clock.Tickers() == 0 }, waitFor, 5*time.Millisecond)
}

func TestGenerator_CancelStopsProduction(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	gen := newGenerator(clock, testutils.FlatRand)

	ctx, cancel := context.WithCancel(context.Background())
	ch := gen.Generate("GOOG").Stream(ctx)

	clock.Advance(time.Second)
	recv(t, ch)

	cancel()
	assertClosed(t, ch)
	assert.Eventually(t, func() bool { return clock.Tickers() == 0 }, waitFor, 5*time.Millisecond)
}

func TestGenerator_EachStreamIsIndependent(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	gen := newGenerator(clock, &testutils.MockRand{ValFloat: 0.5})
	seq := gen.Generate("AMZN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := seq.Stream(ctx)
	clock.Advance(time.Second)
	assert.Equal(t, 25.0, recv(t, a).Price)
	clock.Advance(time.Second)
	assert.Equal(t, 27.5, recv(t, a).Price)

	// a second stream of the same sequence starts its own walk
	b := seq.Stream(ctx)
	clock.Advance(time.Second)
	assert.Equal(t, 30.0, recv(t, a).Price)
	assert.Equal(t, 25.0, recv(t, b).Price)
}

func TestGenerator_StepCap(t *testing.T) {
	cfg := tickgen.DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	cfg.MaxSteps = 3
	gen := tickgen.NewGenerator(cfg, tickgen.RealClock{}, testutils.FlatRand, zap.NewNop())

	var ticks []models.Stock
	for tick := range gen.Generate("MSFT").Stream(context.Background()) {
		ticks = append(ticks, tick)
	}

	require.Len(t, ticks, 3)
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i].TimestampMillis, ticks[i-1].TimestampMillis)
	}
}
