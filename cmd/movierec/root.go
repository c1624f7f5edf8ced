// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"github.com/spf13/cobra"

	"github.com/Renjie1997/movie-rec/internal/config"
	"github.com/Renjie1997/movie-rec/internal/logging"
)

// app carries the loaded configuration to subcommands.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "movierec",
		Short:         "Movie recommendation exchange coordinator",
		Long:          "movierec requests movie recommendations from a remote scheduler over NATS JetStream, ships staged rating updates and stores the results in DuckDB.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $CONFIG_PATH, ./config.yaml, /etc/movierec/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newExchangeCmd(a),
		newStageCmd(a),
		newUserCmd(a),
		newRecsCmd(a),
	)
	return rootCmd
}

func (a *app) load() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logging.Init(cfg.LoggerConfig())
	a.cfg = cfg
	return nil
}
