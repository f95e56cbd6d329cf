package processor

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/pkg/config"
	"github.com/shubham-shewale/tickstream/pkg/models"
)

const (
	workerBuffer       = 100
	defaultSnapshotTTL = time.Hour
)

// Processor moves ticks from the bus into Redis: the latest tick per ticker
// as a snapshot key, and every tick on the ticker's pubsub channel.
type Processor struct {
	logger      Logger
	rdb         RedisClient
	reader      KafkaReader
	numWorkers  int
	snapshotTTL time.Duration
}

func NewProcessor(cfg *config.Config, logger Logger, rdb RedisClient, reader KafkaReader) *Processor {
	numWorkers := cfg.Processor.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ttl := cfg.Processor.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &Processor{
		logger:      logger,
		rdb:         rdb,
		reader:      reader,
		numWorkers:  numWorkers,
		snapshotTTL: ttl,
	}
}

// Run blocks until ctx is done and the workers have drained.
func (p *Processor) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, p.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < p.numWorkers; i++ {
		workerChans[i] = make(chan []byte, workerBuffer)
		wg.Add(1)
		go p.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		p.logger.Info("Processor Started", zap.Int("workers", p.numWorkers))
		for {
			m, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return
				}
				p.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Same ticker always goes to the same worker, preserving its order
			workerID := getWorkerID(m.Key, p.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				// Latest beats complete for live prices
				p.logger.Warn("Dropping slow packet", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	<-ctx.Done()
	p.logger.Info("Shutdown signal received, stopping processor...")
	<-readerDone

	for _, ch := range workerChans {
		close(ch)
	}
	p.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (p *Processor) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	// Background so shutdown does not cut a Redis write in half
	ctx := context.Background()

	// Only valid because sharding pins each ticker to one worker
	lastSeen := make(map[string]int64)

	for payload := range msgs {
		var tick models.Stock
		if err := json.Unmarshal(payload, &tick); err != nil {
			p.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}
		if tick.Ticker == "" {
			p.logger.Warn("Tick without ticker", zap.ByteString("payload", payload))
			continue
		}

		if last, ok := lastSeen[tick.Ticker]; ok && tick.TimestampMillis <= last {
			p.logger.Debug("Skipping stale tick",
				zap.String("ticker", tick.Ticker),
				zap.Int64("timestamp", tick.TimestampMillis),
				zap.Int64("last", last))
			continue
		}

		pipe := p.rdb.Pipeline()
		pipe.Set(ctx, models.SnapshotKey(tick.Ticker), payload, p.snapshotTTL)
		pipe.Publish(ctx, models.PriceChannel(tick.Ticker), payload)

		if _, err := pipe.Exec(ctx); err != nil {
			p.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("ticker", tick.Ticker))
			continue
		}
		p.logger.Debug("Processed", zap.String("ticker", tick.Ticker), zap.Int("worker_id", id))
		lastSeen[tick.Ticker] = tick.TimestampMillis
	}
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(numWorkers))
}
