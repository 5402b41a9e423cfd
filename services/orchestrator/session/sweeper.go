// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// =============================================================================
// Idle session sweeper
// =============================================================================

// Sweeper periodically evicts idle sessions from a Store. Uses the
// ticker + done channel pattern for graceful shutdown.
//
// # Description
//
// Manages the lifecycle of one background goroutine that calls
// Store.EvictIdle at the store's configured sweep interval. Only one
// sweeper should run per store.
//
// # Thread Safety
//
// All public methods are thread-safe. A mutex protects the running
// state transitions.
type Sweeper struct {
	store   *Store
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper for the given store. Ready to Start().
func NewSweeper(store *Store) *Sweeper {
	return &Sweeper{
		store: store,
		done:  make(chan struct{}),
	}
}

// Start begins the background eviction loop.
//
// # Inputs
//
//   - ctx: Context for cancellation. When cancelled, the sweeper stops.
//
// # Outputs
//
//   - error: Non-nil if the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	done := s.done
	s.mu.Unlock()

	slog.Info("session.sweeper: starting",
		"interval", s.store.cfg.SweepInterval.String(),
		"idle_timeout", s.store.cfg.IdleTimeout.String(),
	)

	// The loop owns the channel it was started with; a restart must not
	// leave the old goroutine selecting on the new one.
	go s.runLoop(ctx, done)
	return nil
}

// Stop signals the sweeper to stop. Safe to call multiple times.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil // Already stopped
	}

	slog.Info("session.sweeper: stopping")
	close(s.done)
	s.running = false
	return nil
}

func (s *Sweeper) runLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.store.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session.sweeper: stopped (context cancelled)")
			return
		case <-done:
			slog.Info("session.sweeper: stopped (stop requested)")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	evicted := s.store.EvictIdle()
	if evicted > 0 {
		slog.Info("session.sweeper: evicted idle sessions",
			"evicted", evicted, "remaining", s.store.Len())
	} else {
		slog.Debug("session.sweeper: sweep completed (no idle sessions)")
	}
}
