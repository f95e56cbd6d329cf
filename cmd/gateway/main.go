package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/registry"
	"github.com/shubham-shewale/tickstream/cmd/gateway/internal/repository"
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Snapshots are optional; ticks still flow without Redis
		logger.Warn("Redis unreachable, snapshots disabled until it recovers", zap.Error(err))
	}
	store := repository.NewRedisStore(rdb)
	defer store.Close()

	gen := tickgen.NewGenerator(tickgen.ConfigFrom(cfg.Generator), tickgen.RealClock{}, tickgen.RealRand{}, logger)
	reg := registry.New(gen, logger)
	limiter := repository.NewLocalRateLimiter(cfg.Gateway.SubscribeRate, cfg.Gateway.SubscribeBurst)

	validTickers := make(map[string]bool)
	for _, t := range cfg.Gateway.ValidTickers {
		validTickers[t] = true
	}

	// Dependency Injection: the hub owns no globals, everything is passed in
	wsHub := hub.NewHub(reg, store, limiter, validTickers, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.NewHandler(wsHub, logger, cfg.Gateway.SendBuffer))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		conns, clients := wsHub.Stats()
		fmt.Fprintf(w, "ok connections=%d clients=%d\n", conns, clients)
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port), zap.Int("valid_tickers", len(validTickers)))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	wsHub.Shutdown()
	logger.Info("Shutdown Complete")
}
