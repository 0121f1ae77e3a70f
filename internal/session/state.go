// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session holds the client's authentication state: the current token,
// its decoded claims, the signed-in principal's profile and the ready latch that
// tells the host application bootstrap has finished.
//
// State is observable. Listeners registered with Subscribe receive a Snapshot
// after every mutation, outside of the internal lock, so they may call back into
// State freely.
//
// Bootstrap, sign-in and sign-out must not interleave; the orchestration that
// drives State lives in the hyperbase package.
package session

import (
	"fmt"
	"sync"
)

// Snapshot is an immutable view of State.
type Snapshot struct {
	Token         string
	Claims        *Claims
	Authenticated bool
	Ready         bool
	Profile       map[string]any
}

// State is the observable session state backed by durable Storage.
type State struct {
	storage Storage

	mu            sync.RWMutex
	token         string
	claims        *Claims
	authenticated bool
	ready         bool
	profile       map[string]any

	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates an unauthenticated, not-ready State persisting to storage.
func New(storage Storage) *State {
	if storage == nil {
		storage = NewMemoryStorage(nil)
	}
	return &State{storage: storage, listeners: make(map[int]func(Snapshot))}
}

// Storage returns the durable storage backing the state.
func (s *State) Storage() Storage { return s.storage }

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	var profile map[string]any
	if s.profile != nil {
		profile = make(map[string]any, len(s.profile))
		for k, v := range s.profile {
			profile[k] = v
		}
	}
	return Snapshot{
		Token:         s.token,
		Claims:        s.claims,
		Authenticated: s.authenticated,
		Ready:         s.ready,
		Profile:       profile,
	}
}

// Token returns the current session token, or "" when signed out.
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn and immediately calls it with the current snapshot.
// The returned function removes the listener.
func (s *State) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Authenticate persists token and marks the session authenticated.
// Nothing changes in memory when persisting fails.
func (s *State) Authenticate(token string, claims *Claims) error {
	if err := s.storage.Set(KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.update(func() {
		if s.token != token {
			s.profile = nil
		}
		s.token = token
		s.claims = claims
		s.authenticated = true
	})
	return nil
}

// Clear drops the persisted token and resets the in-memory session.
// Memory is cleared even when the storage delete fails; that error is returned.
func (s *State) Clear() error {
	err := s.storage.Delete(KeyToken)
	s.update(func() {
		s.token = ""
		s.claims = nil
		s.authenticated = false
		s.profile = nil
	})
	if err != nil {
		return fmt.Errorf("delete persisted token: %w", err)
	}
	return nil
}

// SetProfile stores the profile fetched for token. It is dropped when the
// session has moved on to another token (or signed out) in the meantime.
func (s *State) SetProfile(token string, profile map[string]any) bool {
	applied := false
	s.update(func() {
		if s.token == "" || s.token != token {
			return
		}
		s.profile = profile
		applied = true
	})
	return applied
}

// MarkReady latches the ready flag. It never reverts.
func (s *State) MarkReady() {
	s.update(func() { s.ready = true })
}

// update applies fn under the write lock and notifies listeners afterwards.
func (s *State) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}
