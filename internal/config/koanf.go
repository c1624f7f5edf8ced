// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/movierec/config.yaml",
	"/etc/movierec/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:                     "nats://127.0.0.1:4222",
			Topic:                   "MRSYSCOMMUNICATION",
			StreamName:              "MRSYS",
			ClientName:              "Recommender",
			MaxAge:                  48 * time.Hour,
			MaxReconnects:           -1,
			ReconnectWait:           2 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
			Embedded:                false,
			EmbeddedHost:            "0.0.0.0",
			EmbeddedPort:            4222,
			StoreDir:                "/data/nats/jetstream",
			MaxMemory:               64 << 20,
			MaxStore:                1 << 30,
		},
		Exchange: ExchangeConfig{
			Timeout:           100 * time.Second,
			PublishGap:        100 * time.Millisecond,
			DisconnectTimeout: 10 * time.Second,
			ScheduleEnabled:   true,
			ScheduleAt:        "06:00",
			RunOnStartup:      false,
		},
		Staging: StagingConfig{
			Path: "/data/staging/updates.buf",
		},
		WAL: WALConfig{
			Enabled:         true,
			Path:            "/data/wal",
			SyncWrites:      true,
			EntryTTL:        7 * 24 * time.Hour,
			CompactInterval: time.Hour,
		},
		Database: DatabaseConfig{
			Path:      "/data/movierec.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file; an empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"broker_url":                "broker.url",
	"broker_topic":              "broker.topic",
	"broker_stream":             "broker.stream_name",
	"broker_client_name":        "broker.client_name",
	"broker_memory_storage":     "broker.memory_storage",
	"broker_max_reconnects":     "broker.max_reconnects",
	"broker_reconnect_wait":     "broker.reconnect_wait",
	"broker_breaker_threshold":  "broker.breaker_failure_threshold",
	"broker_breaker_timeout":    "broker.breaker_timeout",
	"broker_embedded":           "broker.embedded",
	"broker_embedded_host":      "broker.embedded_host",
	"broker_embedded_port":      "broker.embedded_port",
	"nats_store_dir":            "broker.store_dir",
	"nats_max_memory":           "broker.max_memory",
	"nats_max_store":            "broker.max_store",
	"exchange_timeout":          "exchange.timeout",
	"exchange_publish_gap":      "exchange.publish_gap",
	"exchange_schedule_at":      "exchange.schedule_at",
	"exchange_schedule_enabled": "exchange.schedule_enabled",
	"exchange_run_on_startup":   "exchange.run_on_startup",
	"staging_path":              "staging.path",
	"wal_enabled":               "wal.enabled",
	"wal_path":                  "wal.path",
	"wal_sync_writes":           "wal.sync_writes",
	"wal_entry_ttl":             "wal.entry_ttl",
	"wal_compact_interval":      "wal.compact_interval",
	"duckdb_path":               "database.path",
	"duckdb_max_memory":         "database.max_memory",
	"duckdb_threads":            "database.threads",
	"http_host":                 "server.host",
	"http_port":                 "server.port",
	"http_timeout":              "server.timeout",
	"rate_limit_requests":       "server.rate_limit_reqs",
	"rate_limit_window":         "server.rate_limit_window",
	"log_level":                 "logging.level",
	"log_format":                "logging.format",
	"log_caller":                "logging.caller",
}

// envTransformFunc maps allow-listed environment variables to config keys.
// Anything else is dropped so unrelated variables never leak into config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
