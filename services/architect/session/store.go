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
	"sort"
	"sync"
	"time"
)

// Store is an in-memory session store.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create adds a fresh session.
func (s *Store) Create() *Session {
	session := newSession()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get returns the session with id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// GetOrCreate returns the session with id, or a new one when id is empty
// or unknown. The new session gets its own ID.
func (s *Store) GetOrCreate(id string) *Session {
	if id != "" {
		if session, ok := s.Get(id); ok {
			return session
		}
	}
	return s.Create()
}

// Reset drops the session with id, if any, and returns a fresh one.
func (s *Store) Reset(id string) *Session {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return s.Create()
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List returns the session IDs in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Prune removes idle sessions not active since before cutoff and returns
// how many were removed. Busy sessions are kept.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.LastActiveAt().Before(cutoff) && session.TryAcquire() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
