// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Renjie1997/movie-rec/internal/recommend"
)

func newExchangeCmd(a *app) *cobra.Command {
	var userIDs []int64

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Run one exchange session now and print its summary",
		Long:  "Requests recommendations for the given users (default: every user in the database), ships staged rating updates and stores the results.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.wireExchange("")
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			users, err := selectUsers(ctx, c, userIDs)
			if err != nil {
				return err
			}

			summary, err := c.recommender.Recommend(ctx, users)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().Int64SliceVar(&userIDs, "user", nil, "user id to request recommendations for (repeatable)")
	return cmd
}

// selectUsers resolves explicit ids, or lists every user when none are given.
func selectUsers(ctx context.Context, c *components, ids []int64) ([]recommend.User, error) {
	if len(ids) == 0 {
		return c.db.ListUsers(ctx)
	}

	users := make([]recommend.User, 0, len(ids))
	for _, id := range ids {
		u, err := c.db.GetUserByID(ctx, id)
		if errors.Is(err, recommend.ErrUserNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, err)
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}
