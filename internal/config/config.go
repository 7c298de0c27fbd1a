// Package config loads service settings from PHARMA_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "PHARMA"

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	MySQL   MySQLConfig
	Kafka   KafkaConfig
	Workers WorkerConfig
	Log     LogConfig
}

type ServerConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr        string        `envconfig:"GRPC_ADDR" default:":50051"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// RedisConfig enables the stock mirror when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	PoolSize int    `envconfig:"REDIS_POOL_SIZE" default:"100"`
}

// MySQLConfig enables the movement journal when DSN is set.
type MySQLConfig struct {
	DSN             string        `envconfig:"MYSQL_DSN"`
	MaxOpenConns    int           `envconfig:"MYSQL_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `envconfig:"MYSQL_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"MYSQL_CONN_MAX_LIFETIME" default:"5m"`
}

// KafkaConfig enables stock event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers      []string      `envconfig:"KAFKA_BROKERS"`
	Topic        string        `envconfig:"KAFKA_TOPIC" default:"medicine-stock-changed"`
	BatchTimeout time.Duration `envconfig:"KAFKA_BATCH_TIMEOUT" default:"10ms"`
}

type WorkerConfig struct {
	MovementWorkers int           `envconfig:"MOVEMENT_WORKERS" default:"4"`
	MovementQueue   int           `envconfig:"MOVEMENT_QUEUE" default:"10000"`
	SinkTimeout     time.Duration `envconfig:"SINK_TIMEOUT" default:"5s"`
	DispatchWorkers int           `envconfig:"DISPATCH_WORKERS" default:"8"`
	DispatchQueue   int           `envconfig:"DISPATCH_QUEUE" default:"1024"`
	PushTimeout     time.Duration `envconfig:"PUSH_TIMEOUT" default:"5s"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	// Format is json or console.
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads every section with the shared prefix, so variables are
// PHARMA_HTTP_ADDR rather than PHARMA_SERVER_HTTP_ADDR.
func Load() (*Config, error) {
	var cfg Config

	sections := []struct {
		name   string
		target any
	}{
		{"server", &cfg.Server},
		{"redis", &cfg.Redis},
		{"mysql", &cfg.MySQL},
		{"kafka", &cfg.Kafka},
		{"workers", &cfg.Workers},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(envPrefix, s.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", s.name, err)
		}
	}

	if err := cfg.Workers.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (w WorkerConfig) validate() error {
	if w.MovementWorkers < 1 || w.DispatchWorkers < 1 {
		return fmt.Errorf("worker counts must be positive")
	}
	if w.MovementQueue < 1 || w.DispatchQueue < 1 {
		return fmt.Errorf("queue sizes must be positive")
	}
	return nil
}
