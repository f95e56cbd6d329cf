package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrNoBrokers      = errors.New("kafka brokers cannot be empty")
	ErrBadInterval    = errors.New("generator interval must be positive")
	ErrBadDeltaRange  = errors.New("generator min_delta must be below max_delta")
	ErrBadWorkerCount = errors.New("processor workers must be positive")
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`    // debug, info, warn, error
	Encoding string `mapstructure:"encoding"` // json or console
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	GroupID    string   `mapstructure:"group_id"`
	Partitions int      `mapstructure:"partitions"`
}

// GeneratorConfig shapes the random walk behind every tick sequence.
type GeneratorConfig struct {
	Tickers    []string      `mapstructure:"tickers"` // feed service only
	Interval   time.Duration `mapstructure:"interval"`
	StartPrice float64       `mapstructure:"start_price"`
	MinDelta   float64       `mapstructure:"min_delta"`
	MaxDelta   float64       `mapstructure:"max_delta"`
	Ceiling    float64       `mapstructure:"ceiling"`
	MaxSteps   int           `mapstructure:"max_steps"` // 0 = unbounded
}

type ProcessorConfig struct {
	NumWorkers  int           `mapstructure:"workers"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type GatewayConfig struct {
	ValidTickers   []string `mapstructure:"valid_tickers"` // empty accepts any ticker
	SendBuffer     int      `mapstructure:"send_buffer"`
	SubscribeRate  float64  `mapstructure:"subscribe_rate"` // commands per second per client
	SubscribeBurst int      `mapstructure:"subscribe_burst"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Load .env into the process environment so APP_PORT etc. are real env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "app.port" -> "APP_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only maps flat env vars onto nested keys it knows about
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.brokers", "kafka.topic", "kafka.group_id", "kafka.partitions")
	bindEnv(v, "generator.tickers", "generator.interval", "generator.start_price",
		"generator.min_delta", "generator.max_delta", "generator.ceiling", "generator.max_steps")
	bindEnv(v, "processor.workers", "processor.snapshot_ttl")
	bindEnv(v, "gateway.valid_tickers", "gateway.send_buffer", "gateway.subscribe_rate", "gateway.subscribe_burst")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_id", "tick-processor-group")
	v.SetDefault("kafka.partitions", 4)

	v.SetDefault("generator.tickers", []string{"AAPL", "GOOG", "TSLA", "AMZN"})
	v.SetDefault("generator.interval", time.Second)
	v.SetDefault("generator.start_price", 25.0)
	v.SetDefault("generator.min_delta", -5.0)
	v.SetDefault("generator.max_delta", 10.0)
	v.SetDefault("generator.ceiling", 100.0)
	v.SetDefault("generator.max_steps", 0)

	v.SetDefault("processor.workers", 4)
	v.SetDefault("processor.snapshot_ttl", time.Hour)

	v.SetDefault("gateway.valid_tickers", []string{})
	v.SetDefault("gateway.send_buffer", 256)
	v.SetDefault("gateway.subscribe_rate", 5.0)
	v.SetDefault("gateway.subscribe_burst", 10)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Generator.Interval <= 0 {
		return ErrBadInterval
	}
	if c.Generator.MinDelta >= c.Generator.MaxDelta {
		return fmt.Errorf("%w: [%v, %v)", ErrBadDeltaRange, c.Generator.MinDelta, c.Generator.MaxDelta)
	}
	if c.Processor.NumWorkers <= 0 {
		return ErrBadWorkerCount
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
