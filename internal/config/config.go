// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Renjie1997/movie-rec/internal/broker"
	"github.com/Renjie1997/movie-rec/internal/database"
	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/wal"
)

// Config is the complete application configuration.
type Config struct {
	Broker   BrokerConfig   `koanf:"broker"`
	Exchange ExchangeConfig `koanf:"exchange"`
	Staging  StagingConfig  `koanf:"staging"`
	WAL      WALConfig      `koanf:"wal"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// BrokerConfig configures the connection to the scheduler's broker.
type BrokerConfig struct {
	URL           string        `koanf:"url" validate:"required,url"`
	Topic         string        `koanf:"topic" validate:"required,topic"`
	StreamName    string        `koanf:"stream_name" validate:"required,topic"`
	ClientName    string        `koanf:"client_name" validate:"required"`
	MemoryStorage bool          `koanf:"memory_storage"`
	MaxAge        time.Duration `koanf:"max_age" validate:"gte=0"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"gte=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`

	// BreakerFailureThreshold is the consecutive publish failures that open
	// the circuit breaker.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"gte=1"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gte=0"`

	// Embedded starts an in-process NATS server the scheduler connects to.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port" validate:"gte=-1,lte=65535"`
	StoreDir     string `koanf:"store_dir"`
	MaxMemory    int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore     int64  `koanf:"max_store" validate:"gte=0"`
}

// ExchangeConfig configures exchange sessions and their daily schedule.
type ExchangeConfig struct {
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	PublishGap        time.Duration `koanf:"publish_gap" validate:"gte=0"`
	DisconnectTimeout time.Duration `koanf:"disconnect_timeout" validate:"gt=0"`

	ScheduleEnabled bool   `koanf:"schedule_enabled"`
	ScheduleAt      string `koanf:"schedule_at" validate:"required,clock"`
	RunOnStartup    bool   `koanf:"run_on_startup"`
}

// StagingConfig locates the staged rating updates file.
type StagingConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// WALConfig configures the durable update outbox.
type WALConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	EntryTTL        time.Duration `koanf:"entry_ttl" validate:"gte=0"`
	CompactInterval time.Duration `koanf:"compact_interval" validate:"gte=0"`
}

// DatabaseConfig configures DuckDB.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
	Threads   int    `koanf:"threads" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrokerClientConfig returns the broker client settings.
func (c *Config) BrokerClientConfig() broker.Config {
	cfg := broker.DefaultConfig()
	cfg.URL = c.Broker.URL
	cfg.Topic = c.Broker.Topic
	cfg.StreamName = c.Broker.StreamName
	cfg.ClientName = c.Broker.ClientName
	cfg.MemoryStorage = c.Broker.MemoryStorage
	cfg.MaxAge = c.Broker.MaxAge
	cfg.MaxReconnects = c.Broker.MaxReconnects
	cfg.ReconnectWait = c.Broker.ReconnectWait
	cfg.Breaker.FailureThreshold = c.Broker.BreakerFailureThreshold
	cfg.Breaker.Timeout = c.Broker.BreakerTimeout
	return cfg
}

// EmbeddedServerConfig returns the embedded NATS server settings.
func (c *Config) EmbeddedServerConfig() *broker.ServerConfig {
	return &broker.ServerConfig{
		Host:              c.Broker.EmbeddedHost,
		Port:              c.Broker.EmbeddedPort,
		StoreDir:          c.Broker.StoreDir,
		JetStreamMaxMem:   c.Broker.MaxMemory,
		JetStreamMaxStore: c.Broker.MaxStore,
	}
}

// ExchangeCoordinatorConfig returns the coordinator settings.
func (c *Config) ExchangeCoordinatorConfig() exchange.Config {
	return exchange.Config{
		Topic:             c.Broker.Topic,
		Timeout:           c.Exchange.Timeout,
		PublishGap:        c.Exchange.PublishGap,
		DisconnectTimeout: c.Exchange.DisconnectTimeout,
	}
}

// OutboxConfig returns the WAL settings.
func (c *Config) OutboxConfig() wal.Config {
	cfg := wal.DefaultConfig()
	cfg.Path = c.WAL.Path
	cfg.SyncWrites = c.WAL.SyncWrites
	cfg.EntryTTL = c.WAL.EntryTTL
	cfg.CompactInterval = c.WAL.CompactInterval
	return cfg
}

// DuckDBConfig returns the database settings.
func (c *Config) DuckDBConfig() database.Config {
	return database.Config{
		Path:      c.Database.Path,
		Threads:   c.Database.Threads,
		MaxMemory: c.Database.MaxMemory,
	}
}

// LoggerConfig returns the logging settings.
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	cfg.Output = os.Stderr
	return cfg
}
