package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/generator/internal/generator"
	"github.com/shubham-shewale/tickstream/pkg/config"
	"github.com/shubham-shewale/tickstream/pkg/tickgen"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure the topic exists
	dialer := &generator.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second}}
	tc := generator.NewTopicCreator(logger, dialer, nil)
	if !tc.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions) {
		logger.Warn("Topic not confirmed, relying on broker auto-creation", zap.String("topic", cfg.Kafka.Topic))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{}, // same ticker, same partition
		// Batch to reduce network IO
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...))
		}),
	}

	gen := tickgen.NewGenerator(tickgen.ConfigFrom(cfg.Generator), tickgen.RealClock{}, tickgen.RealRand{}, logger)
	fp := generator.NewFeedPublisher(logger, writer, cfg.Generator.Tickers, gen)

	done := make(chan struct{})
	go func() {
		fp.Run(ctx)
		close(done)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()
	<-done

	// Flush the async buffer before exit
	if err := writer.Close(); err != nil {
		logger.Error("Error closing Kafka writer", zap.Error(err))
	} else {
		logger.Info("Kafka writer closed cleanly")
	}
}
