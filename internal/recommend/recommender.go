// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package recommend

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/logging"
)

// Recommender runs a recommendation cycle: one exchange session followed by
// a database update.
type Recommender struct {
	exchanger Exchanger
	bridge    *Bridge
	logger    zerolog.Logger
}

// NewRecommender wires an exchanger to a store.
func NewRecommender(exchanger Exchanger, store UserStore) *Recommender {
	return &Recommender{
		exchanger: exchanger,
		bridge:    NewBridge(store),
		logger:    logging.Component("recommend"),
	}
}

// SetLogger replaces the logger of the recommender and its bridge.
func (r *Recommender) SetLogger(l zerolog.Logger) {
	r.logger = l
	r.bridge.SetLogger(l)
}

// Recommend requests recommendations for users and blocks until the session
// is over, then stores whatever was received. The error is non-nil only when
// the session could not start; row failures are reported in the Summary.
func (r *Recommender) Recommend(ctx context.Context, users []User) (Summary, error) {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, strconv.FormatInt(u.ID, 10))
	}

	results, report, err := r.exchanger.Run(ctx, ids)
	if err != nil {
		return Summary{}, err
	}

	if len(results) == 0 {
		r.logger.Info().Str("outcome", string(report.Outcome)).Msg("Nothing to update in database")
		return Summary{Report: report}, nil
	}

	// Results received before a cancellation are still stored.
	if report.Outcome == exchange.OutcomeCanceled {
		ctx = context.WithoutCancel(ctx)
	}
	summary := r.bridge.UpdateDatabase(ctx, results)
	summary.Report = report
	return summary, nil
}
