// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package staging manages the local file of pending rating updates.
//
// The web layer appends one line per rating change; the exchange coordinator
// drains the whole file once per session and ships it to the scheduler in an
// UPDATE message. Draining is destructive: the file is removed after it has
// been read in full.
package staging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Renjie1997/movie-rec/internal/logging"
)

// Operation is the kind of rating change recorded in a staged line.
type Operation string

const (
	OpNew    Operation = "new"
	OpUpdate Operation = "update"
)

const (
	drainingSuffix = ".draining"
	mergingSuffix  = ".merging"
)

// ErrInvalidUpdate is returned by Append for updates that cannot be staged.
var ErrInvalidUpdate = errors.New("invalid rating update")

// Update is a single rating change.
type Update struct {
	Op      Operation
	UserID  int64
	MovieID int64
	Rating  float64
}

// String renders the update as operation#user#movie#rating.
func (u Update) String() string {
	return string(u.Op) + "#" +
		strconv.FormatInt(u.UserID, 10) + "#" +
		strconv.FormatInt(u.MovieID, 10) + "#" +
		strconv.FormatFloat(u.Rating, 'f', -1, 64)
}

func (u Update) validate() error {
	if u.Op != OpNew && u.Op != OpUpdate {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidUpdate, u.Op)
	}
	if u.UserID <= 0 || u.MovieID <= 0 {
		return fmt.Errorf("%w: user and movie ids must be positive", ErrInvalidUpdate)
	}
	return nil
}

// File is a staging file at a well-known path.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a staging file rooted at path. The file does not need to
// exist yet.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the staging file location.
func (f *File) Path() string {
	return f.path
}

// Drain reads every line of the staging file and then deletes it. A missing
// file yields no lines and no error.
//
// The file is first renamed to a ".draining" sibling so that appends from
// other processes land in a fresh file. When reading fails the sibling is
// kept; the next Drain moves the live file onto its end and returns both.
func (f *File) Drain(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	draining := f.path + drainingSuffix
	_, err := os.Stat(draining)
	switch {
	case err == nil:
		logging.Warn().Str("path", draining).Msg("Resuming interrupted staging drain")
		if err := f.mergeLive(draining); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		err := os.Rename(f.path, draining)
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug().Str("path", f.path).Msg("No staged updates")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("rotate staging file: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat staging file: %w", err)
	}

	lines, err := readLines(draining)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(draining); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove staging file: %w", err)
	}

	logging.Info().Str("path", f.path).Int("lines", len(lines)).Msg("Staging file drained")
	return lines, nil
}

// mergeLive appends the live staging file to an interrupted drain file. The
// live file is renamed to a ".merging" sibling first; a ".merging" file left
// by an earlier crash is appended before it is reused.
func (f *File) mergeLive(draining string) error {
	merging := f.path + mergingSuffix
	if err := appendFile(draining, merging); err != nil {
		return err
	}

	err := os.Rename(f.path, merging)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rotate staging file: %w", err)
	}
	return appendFile(draining, merging)
}

// appendFile copies src onto the end of dst and removes src. A missing src
// is not an error.
func appendFile(dst, src string) error {
	//nolint:gosec // path comes from operator configuration
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	defer func() { _ = in.Close() }()

	//nolint:gosec // path comes from operator configuration
	out, err := os.OpenFile(dst, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open draining file: %w", err)
	}
	// A torn last line in dst must not run into the first line of src.
	_, err = out.WriteString("\n")
	if err == nil {
		_, err = io.Copy(out, in)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("merge staging file: %w", err)
	}

	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	//nolint:gosec // path comes from operator configuration
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	scanErr := scanner.Err()
	if cerr := file.Close(); cerr != nil && scanErr == nil {
		scanErr = cerr
	}
	if scanErr != nil {
		return nil, fmt.Errorf("read staging file: %w", scanErr)
	}
	return lines, nil
}

// Append stages one rating update, creating the file and its directory when
// needed.
func (f *File) Append(ctx context.Context, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := u.validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create staging directory: %w", err)
		}
	}

	//nolint:gosec // path comes from operator configuration
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	if _, err := file.WriteString(u.String() + "\n"); err != nil {
		_ = file.Close()
		return fmt.Errorf("append staging line: %w", err)
	}
	return file.Close()
}
