// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Renjie1997/movie-rec/internal/broker"
	"github.com/Renjie1997/movie-rec/internal/database"
	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/recommend"
	"github.com/Renjie1997/movie-rec/internal/staging"
	"github.com/Renjie1997/movie-rec/internal/wal"
)

// components is everything one exchange needs.
type components struct {
	db          *database.DB
	staging     *staging.File
	client      *broker.Client
	outbox      *wal.BadgerWAL
	coordinator *exchange.Coordinator
	recommender *recommend.Recommender
}

func (c *components) Close() error {
	var errs []error
	if c.outbox != nil {
		errs = append(errs, c.outbox.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// wireExchange opens the database, the optional outbox and the broker
// client. brokerURL overrides the configured URL when not empty.
func (a *app) wireExchange(brokerURL string) (*components, error) {
	c := &components{}

	db, err := database.New(a.cfg.DuckDBConfig())
	if err != nil {
		return nil, err
	}
	c.db = db

	c.staging = staging.NewFile(a.cfg.Staging.Path)
	var updates exchange.UpdateSource = c.staging
	if a.cfg.WAL.Enabled {
		w, err := wal.Open(a.cfg.OutboxConfig())
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("open outbox: %w", err)
		}
		c.outbox = w
		updates = wal.NewOutbox(w, updates)
	}

	brokerCfg := a.cfg.BrokerClientConfig()
	if brokerURL != "" {
		brokerCfg.URL = brokerURL
	}
	client, err := broker.NewClient(brokerCfg, logging.NewWatermillLogger())
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.client = client

	coordinator, err := exchange.NewCoordinator(client, updates, a.cfg.ExchangeCoordinatorConfig())
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.coordinator = coordinator
	c.recommender = recommend.NewRecommender(coordinator, db)
	return c, nil
}

// resetStream deletes the exchange stream so the next connect recreates it.
func (a *app) resetStream(ctx context.Context, brokerURL string) error {
	cfg := a.cfg.BrokerClientConfig()
	if brokerURL != "" {
		cfg.URL = brokerURL
	}
	_, err := broker.ResetStream(ctx, cfg)
	return err
}
