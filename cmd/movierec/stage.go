// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Renjie1997/movie-rec/internal/metrics"
	"github.com/Renjie1997/movie-rec/internal/staging"
)

func newStageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stage <new|update> <user-id> <movie-id> <rating>",
		Short: "Append a rating update to the staging file",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseUpdate(args)
			if err != nil {
				return err
			}

			file := staging.NewFile(a.cfg.Staging.Path)
			if err := file.Append(cmd.Context(), update); err != nil {
				return err
			}
			metrics.RecordRatingStaged(string(update.Op))

			_, err = fmt.Fprintln(cmd.OutOrStdout(), update.String())
			return err
		},
	}
}

func parseUpdate(args []string) (staging.Update, error) {
	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return staging.Update{}, fmt.Errorf("user id %q: %w", args[1], err)
	}
	movieID, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return staging.Update{}, fmt.Errorf("movie id %q: %w", args[2], err)
	}
	rating, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return staging.Update{}, fmt.Errorf("rating %q: %w", args[3], err)
	}
	return staging.Update{
		Op:      staging.Operation(args[0]),
		UserID:  userID,
		MovieID: movieID,
		Rating:  rating,
	}, nil
}
