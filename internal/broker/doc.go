// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package broker is the publish/subscribe transport of the recommendation
// exchange.
//
// The exchange protocol was designed for an MQTT-style broker: one topic,
// highest QoS tier, retained last message, clean sessions. This package maps
// those guarantees onto NATS JetStream through Watermill:
//
//   - Topic: one JetStream stream per topic, the topic being its only subject.
//   - Retained message: the stream keeps one message per subject
//     (MaxMsgsPerSubject=1), so the last published message survives until the
//     next publish or until ClearRetained purges the subject.
//   - Highest QoS: JetStream publish acknowledgements plus Nats-Msg-Id
//     de-duplication inside DuplicateWindow (exactly-once publish).
//   - Clean session: every Connect opens fresh connections and an ephemeral
//     consumer; nothing survives Disconnect.
//   - Auto-reconnect: nats.go reconnects forever (MaxReconnects=-1).
//
// Publishes go through a gobreaker circuit breaker so a dead broker fails
// fast instead of stalling the session until its timeout.
//
// # Usage
//
//	srv, _ := broker.NewEmbeddedServer(&broker.ServerConfig{Port: 4222, StoreDir: dir})
//	client, _ := broker.NewClient(broker.DefaultConfig(), logging.NewWatermillLogger())
//	coordinator, _ := exchange.NewCoordinator(client, outbox, exchange.DefaultConfig())
//
// NewWatermillClient adapts any Watermill publisher/subscriber pair, which is
// how the in-process GoChannel transport is used in tests.
package broker
