// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/Renjie1997/movie-rec/internal/exchange"
)

// ErrUserNotFound is returned by UserStore.GetUserByID for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// User is an account that can receive recommendations.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore is the persistence layer used by the bridge.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
	UpdateRecommendation(ctx context.Context, user *User, payload []byte) error
}

// Exchanger runs one exchange session. Satisfied by *exchange.Coordinator.
type Exchanger interface {
	Run(ctx context.Context, userIDs []string) (exchange.ResultMap, exchange.Report, error)
}

// Row statuses, also used as metric labels.
const (
	StatusOK             = "ok"
	StatusInvalidUserID  = "invalid_user_id"
	StatusUserNotFound   = "user_not_found"
	StatusLookupError    = "lookup_error"
	StatusSerializeError = "serialize_error"
	StatusCommitError    = "commit_error"
)

// Summary counts the outcome of one database update pass.
type Summary struct {
	Total          int             `json:"total"`
	Committed      int             `json:"committed"`
	InvalidUserID  int             `json:"invalid_user_id"`
	UserNotFound   int             `json:"user_not_found"`
	LookupErrors   int             `json:"lookup_errors"`
	SerializeError int             `json:"serialize_errors"`
	CommitErrors   int             `json:"commit_errors"`
	Report         exchange.Report `json:"report"`
}

// Skipped returns the number of rows that were not committed.
func (s Summary) Skipped() int {
	return s.Total - s.Committed
}

func (s *Summary) count(status string) {
	switch status {
	case StatusOK:
		s.Committed++
	case StatusInvalidUserID:
		s.InvalidUserID++
	case StatusUserNotFound:
		s.UserNotFound++
	case StatusLookupError:
		s.LookupErrors++
	case StatusSerializeError:
		s.SerializeError++
	case StatusCommitError:
		s.CommitErrors++
	}
}
