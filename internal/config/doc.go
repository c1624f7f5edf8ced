// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package config loads movie-rec configuration with Koanf.
//
// # Sources
//
// Values are layered, later sources overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
//     /etc/movierec/config.yaml, /etc/movierec/config.yml (first found)
//  3. Environment variables (explicit allow-list, see envTransformFunc)
//
// # Example File
//
//	broker:
//	  url: nats://scheduler.internal:4222
//	  topic: MRSYSCOMMUNICATION
//	exchange:
//	  timeout: 100s
//	  schedule_at: "06:00"
//	staging:
//	  path: /data/staging/updates.buf
//	database:
//	  path: /data/movierec.duckdb
//
// # Environment Variables
//
//	BROKER_URL, BROKER_TOPIC, BROKER_STREAM, BROKER_CLIENT_NAME, BROKER_EMBEDDED,
//	NATS_STORE_DIR, EXCHANGE_TIMEOUT, EXCHANGE_PUBLISH_GAP, EXCHANGE_SCHEDULE_AT,
//	EXCHANGE_SCHEDULE_ENABLED, EXCHANGE_RUN_ON_STARTUP, STAGING_PATH,
//	WAL_ENABLED, WAL_PATH, WAL_ENTRY_TTL, DUCKDB_PATH, DUCKDB_MAX_MEMORY,
//	HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
//
// Validation combines go-playground/validator struct tags with cross-field
// checks in Validate.
package config
