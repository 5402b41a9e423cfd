// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session holds per-conversation state for the pipeline:
// bounded message history and the most recent retrieval results, keyed
// by session id, with idle-based background eviction.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/PantryPilot/services/orchestrator/datatypes"
)

// Config bounds the store. Zero values are replaced by defaults in
// NewStore.
type Config struct {
	// MaxTurns is the number of (user, assistant) exchanges retained;
	// history holds at most 2*MaxTurns messages.
	MaxTurns int

	// IdleTimeout is how long a session may sit untouched before the
	// sweeper evicts it.
	IdleTimeout time.Duration

	// SweepInterval is how often the sweeper scans for idle sessions.
	SweepInterval time.Duration
}

const (
	defaultMaxTurns      = 10
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 15 * time.Minute
)

// Info is a read-only administrative view of one session.
type Info struct {
	ID           string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// sessionState is the mutable record behind the store's mutex. Callers
// only ever see copies.
type sessionState struct {
	id          string
	history     []datatypes.Message
	lastResults []datatypes.Recipe
	createdAt   time.Time
	lastActive  time.Time
}

// Store is an in-memory session registry. All access goes through one
// mutex; there are no package-level globals.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	cfg      Config
	now      func() time.Time
}

// NewStore creates a Store, applying defaults for zero config fields.
func NewStore(cfg Config) *Store {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &Store{
		sessions: make(map[string]*sessionState),
		cfg:      cfg,
		now:      time.Now,
	}
}

// GetOrCreate resolves id to an existing session or creates one, in a
// single critical section so that two concurrent first contacts with
// the same id end up sharing one session. An empty id gets a fresh
// UUID. Returns the resolved session id.
func (s *Store) GetOrCreate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.sessions[id]; !ok {
		now := s.now()
		s.sessions[id] = &sessionState{
			id:         id,
			createdAt:  now,
			lastActive: now,
		}
		slog.Debug("session.store: created session", "session_id", id)
	} else {
		s.sessions[id].lastActive = s.now()
	}
	return id
}

// History returns a copy of the session's message history, oldest
// first. Unknown ids yield nil.
func (s *Store) History(id string) []datatypes.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]datatypes.Message, len(state.history))
	copy(out, state.history)
	return out
}

// Append records one completed exchange and bumps last-activity. The
// history window is trimmed oldest-first to 2*MaxTurns messages.
// Appending to an unknown id (e.g. evicted mid-request) is a logged
// no-op, never an error.
func (s *Store) Append(id, userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		slog.Warn("session.store: append to unknown session dropped", "session_id", id)
		return
	}
	state.history = append(state.history,
		datatypes.NewMessage(datatypes.RoleUser, userText),
		datatypes.NewMessage(datatypes.RoleAssistant, assistantText),
	)
	maxMessages := 2 * s.cfg.MaxTurns
	if len(state.history) > maxMessages {
		state.history = state.history[len(state.history)-maxMessages:]
	}
	state.lastActive = s.now()
}

// SetLastResults replaces the session's cached retrieval results with a
// copy. Unknown ids are a no-op.
func (s *Store) SetLastResults(id string, recipes []datatypes.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return
	}
	state.lastResults = make([]datatypes.Recipe, len(recipes))
	copy(state.lastResults, recipes)
	state.lastActive = s.now()
}

// LastResults returns a copy of the session's cached retrieval results.
func (s *Store) LastResults(id string) []datatypes.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]datatypes.Recipe, len(state.lastResults))
	copy(out, state.lastResults)
	return out
}

// List returns administrative snapshots of all live sessions.
func (s *Store) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Info, 0, len(s.sessions))
	for _, state := range s.sessions {
		out = append(out, Info{
			ID:           state.id,
			MessageCount: len(state.history),
			CreatedAt:    state.createdAt,
			LastActive:   state.lastActive,
		})
	}
	return out
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return ok
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle removes every session idle longer than the configured
// timeout and returns how many were evicted.
func (s *Store) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.cfg.IdleTimeout)
	evicted := 0
	for id, state := range s.sessions {
		if state.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
