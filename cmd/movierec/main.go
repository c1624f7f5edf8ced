// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Command movierec exchanges recommendation requests and rating updates
// with a remote scheduler over a NATS JetStream topic.
//
//	movierec serve                          run the daily scheduler and status API
//	movierec exchange [--user ID]...        run one session now
//	movierec stage new 7 101 4.5            stage a rating update
//	movierec user add alice alice@x.org     create a user
//	movierec recs 7                         show stored recommendations
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
