package generator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// emptyWalkPause keeps a sequence that ends without samples from spinning.
const emptyWalkPause = time.Second

// FeedPublisher keeps one random walk running per ticker and publishes every
// tick to Kafka, starting a new walk whenever the previous one ends.
type FeedPublisher struct {
	logger  *zap.Logger
	writer  KafkaWriter
	tickers []string
	gen     SequenceFactory
}

func NewFeedPublisher(logger *zap.Logger, writer KafkaWriter, tickers []string, gen SequenceFactory) *FeedPublisher {
	return &FeedPublisher{
		logger:  logger,
		writer:  writer,
		tickers: tickers,
		gen:     gen,
	}
}

// Run blocks until ctx is cancelled and every walk has stopped.
func (fp *FeedPublisher) Run(ctx context.Context) {
	fp.logger.Info("Generator Started", zap.Strings("tickers", fp.tickers))

	var wg sync.WaitGroup
	for _, ticker := range fp.tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			fp.runTicker(ctx, ticker)
		}(ticker)
	}
	wg.Wait()
}

func (fp *FeedPublisher) runTicker(ctx context.Context, ticker string) {
	for walk := 1; ctx.Err() == nil; walk++ {
		samples := 0
		for tick := range fp.gen.Generate(ticker).Stream(ctx) {
			payload, err := json.Marshal(tick)
			if err != nil {
				fp.logger.Error("JSON Marshal Error", zap.Error(err))
				continue
			}

			// Key ensures partition ordering per ticker
			err = fp.writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(ticker),
				Value: payload,
			})
			if err != nil {
				fp.logger.Error("Kafka Write Error", zap.String("ticker", ticker), zap.Error(err))
				continue
			}
			samples++
			fp.logger.Debug("Sent tick", zap.String("ticker", ticker), zap.Float64("price", tick.Price))
		}

		if ctx.Err() != nil {
			return
		}
		fp.logger.Info("Walk finished, starting a new one",
			zap.String("ticker", ticker), zap.Int("walk", walk), zap.Int("samples", samples))

		if samples == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyWalkPause):
			}
		}
	}
}
