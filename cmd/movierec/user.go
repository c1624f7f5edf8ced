// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Renjie1997/movie-rec/internal/database"
	"github.com/Renjie1997/movie-rec/internal/recommend"
)

func (a *app) openDB() (*database.DB, error) {
	return database.New(a.cfg.DuckDBConfig())
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users that receive recommendations",
	}

	add := &cobra.Command{
		Use:   "add <username> [email]",
		Short: "Create a user and print its id",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			email := ""
			if len(args) == 2 {
				email = args[1]
			}
			u, err := db.CreateUser(cmd.Context(), args[0], email)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return err
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			users, err := db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL")
			for _, u := range users {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Username, u.Email)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newRecsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recs <user-id>",
		Short: "Print the stored recommendations of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("user id %q: %w", args[0], err)
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			rec, err := db.GetRecommendation(cmd.Context(), id)
			if errors.Is(err, database.ErrNoRecommendation) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no recommendations yet")
				return err
			}
			if err != nil {
				return err
			}

			movies, err := recommend.Deserialize(rec.Payload)
			if err != nil {
				return err
			}
			for _, m := range movies {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
