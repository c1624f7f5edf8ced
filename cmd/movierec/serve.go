// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Renjie1997/movie-rec/internal/api"
	"github.com/Renjie1997/movie-rec/internal/broker"
	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/supervisor"
	"github.com/Renjie1997/movie-rec/internal/supervisor/services"
	"github.com/Renjie1997/movie-rec/internal/wal"
)

func newServeCmd(a *app) *cobra.Command {
	var resetStream bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily exchange scheduler and the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, resetStream)
		},
	}
	cmd.Flags().BoolVar(&resetStream, "reset-stream", false, "delete the exchange stream before starting so it is recreated from the current configuration")
	return cmd
}

//nolint:gocyclo // sequential wiring of every long-lived component
func (a *app) serve(ctx context.Context, resetStream bool) error {
	cfg := a.cfg
	logging.Info().
		Str("broker_url", cfg.Broker.URL).
		Str("topic", cfg.Broker.Topic).
		Str("db_path", cfg.Database.Path).
		Bool("wal_enabled", cfg.WAL.Enabled).
		Bool("embedded_nats", cfg.Broker.Embedded).
		Msg("Starting movie-rec")

	var svcs supervisor.Services

	// The embedded server must be up before the broker URL is resolved.
	var (
		brokerURL string
		embedded  *broker.EmbeddedServer
	)
	if cfg.Broker.Embedded {
		var err error
		embedded, err = broker.NewEmbeddedServer(cfg.EmbeddedServerConfig())
		if err != nil {
			return err
		}
		brokerURL = embedded.ClientURL()
		svcs.NATS = services.NewNATSServerService(embedded, func() (services.EmbeddedNATS, error) {
			return broker.NewEmbeddedServer(cfg.EmbeddedServerConfig())
		})
		logging.Info().Str("url", brokerURL).Msg("Embedded NATS server started")
	}
	shutdownEmbedded := func() {
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
	}

	if resetStream {
		if err := a.resetStream(ctx, brokerURL); err != nil {
			shutdownEmbedded()
			return err
		}
	}

	c, err := a.wireExchange(brokerURL)
	if err != nil {
		shutdownEmbedded()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	if c.outbox != nil {
		svcs.Compactor = services.NewWALCompactorService(wal.NewCompactor(c.outbox))
	}

	deps := api.Dependencies{
		Broker:  c.client,
		DB:      c.db,
		Reports: c.coordinator,
		Stager:  c.staging,
	}
	if cfg.Exchange.ScheduleEnabled {
		scheduler, err := services.NewExchangeService(c.recommender, c.db.ListUsers, services.ExchangeServiceConfig{
			At:           cfg.Exchange.ScheduleAt,
			RunOnStartup: cfg.Exchange.RunOnStartup,
		}, logging.Component("scheduler"))
		if err != nil {
			shutdownEmbedded()
			return err
		}
		svcs.Scheduler = scheduler
		deps.Summaries = scheduler
	}

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.NewHandler(deps), api.RouterConfig{
			RateLimitRequests: cfg.Server.RateLimitReqs,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	svcs.HTTP = services.NewHTTPServerService(server, 10*time.Second)

	tree, err := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Exchange.DisconnectTimeout + 5*time.Second,
	}, svcs)
	if err != nil {
		shutdownEmbedded()
		return err
	}
	logging.Info().
		Strs("layers", tree.Layers()).
		Str("addr", server.Addr).
		Msg("Supervisor tree built")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("movie-rec stopped")
	return nil
}
