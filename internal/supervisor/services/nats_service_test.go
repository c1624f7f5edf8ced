// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/Renjie1997/movie-rec/internal/broker"
)

var (
	_ suture.Service = (*NATSServerService)(nil)
	_ EmbeddedNATS   = (*broker.EmbeddedServer)(nil)
)

type mockNATS struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func newMockNATS() *mockNATS {
	m := &mockNATS{}
	m.running.Store(true)
	return m
}

func (m *mockNATS) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	m.running.Store(false)
	return nil
}

func (m *mockNATS) IsRunning() bool {
	return m.running.Load()
}

func TestNATSServerServiceAdoptsRunningServer(t *testing.T) {
	running := newMockNATS()
	var starts atomic.Int32
	svc := NewNATSServerService(running, func() (EmbeddedNATS, error) {
		starts.Add(1)
		return newMockNATS(), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve err = %v, want context.Canceled", err)
	}
	if starts.Load() != 0 {
		t.Errorf("start called %d times for a running server", starts.Load())
	}
	if running.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", running.shutdowns.Load())
	}
}

func TestNATSServerServiceReportsDeadServer(t *testing.T) {
	srv := newMockNATS()
	svc := NewNATSServerService(srv, nil)
	svc.checkInterval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- svc.Serve(context.Background()) }()

	srv.running.Store(false)
	select {
	case err := <-done:
		if !errors.Is(err, ErrServerStopped) {
			t.Errorf("Serve err = %v, want ErrServerStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dead server not detected")
	}
}

func TestNATSServerServiceRestartsDeadServer(t *testing.T) {
	dead := newMockNATS()
	dead.running.Store(false)
	replacement := newMockNATS()

	svc := NewNATSServerService(dead, func() (EmbeddedNATS, error) {
		return replacement, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if replacement.shutdowns.Load() != 1 {
		t.Error("replacement server was not shut down")
	}
}

func TestNATSServerServiceStartError(t *testing.T) {
	svc := NewNATSServerService(nil, func() (EmbeddedNATS, error) {
		return nil, errors.New("address already in use")
	})
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("expected start error")
	}
	if svc.String() != "nats-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
