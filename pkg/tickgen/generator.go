package tickgen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/pkg/models"
)

// Generator hands out cold tick sequences. It holds no per-ticker state, so
// one Generator is shared by every client and goroutine.
type Generator struct {
	cfg    Config
	clock  Clock
	rand   Rand
	logger *zap.Logger
}

func NewGenerator(cfg Config, clock Clock, rnd Rand, logger *zap.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		clock:  clock,
		rand:   rnd,
		logger: logger,
	}
}

// Generate returns the paced random-walk sequence for ticker. Nothing runs
// until the sequence is streamed, and every Stream call starts a fresh walk.
func (g *Generator) Generate(ticker string) Sequence {
	return tickerSequence{gen: g, ticker: ticker}
}

type tickerSequence struct {
	gen    *Generator
	ticker string
}

func (s tickerSequence) Stream(ctx context.Context) <-chan models.Stock {
	out := make(chan models.Stock)
	// Created before returning so the first tick is one full interval after Stream.
	pacer := s.gen.clock.NewTicker(s.gen.cfg.Interval)
	go s.gen.run(ctx, s.ticker, pacer, out)
	return out
}

// run zips the pacing clock with the walk: clock tick i releases sample i.
func (g *Generator) run(ctx context.Context, ticker string, pacer Ticker, out chan<- models.Stock) {
	defer close(out)
	defer pacer.Stop()

	walk := newRandomWalk(g.cfg, g.rand)
	var lastEmit time.Time
	for {
		price, ok := walk.next()
		if !ok {
			g.logger.Debug("Walk hit step cap", zap.String("ticker", ticker), zap.Int("steps", walk.steps))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-pacer.C():
		}
		// A tick queued while the consumer was blocked can land early.
		if !lastEmit.IsZero() && !g.holdOff(ctx, lastEmit) {
			return
		}

		lastEmit = g.clock.Now()
		tick := models.Stock{
			Ticker:          ticker,
			Price:           price,
			TimestampMillis: lastEmit.UnixMilli(),
		}

		select {
		case out <- tick:
		case <-ctx.Done():
			return
		}

		if walk.done {
			g.logger.Debug("Walk crossed ceiling", zap.String("ticker", ticker), zap.Float64("price", price))
			return
		}
	}
}

// holdOff waits until a full interval has passed since last. It returns false
// if ctx ends first.
func (g *Generator) holdOff(ctx context.Context, last time.Time) bool {
	for {
		wait := g.cfg.Interval - g.clock.Now().Sub(last)
		if wait <= 0 {
			return true
		}
		timer := g.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C():
			timer.Stop()
		}
	}
}
