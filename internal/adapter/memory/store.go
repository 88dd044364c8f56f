// Package memory implements the conversation store port as an in-process map.
// State is lost on restart; there is no eviction and no size bound.
package memory

import (
	"sync"

	"github.com/harukisa/taskmate/internal/domain/conversation"
)

// Store holds per-user conversation state with per-user mutual exclusion.
// The outer mutex only guards the map; each entry carries its own lock so a
// long-running turn for one user never blocks other users.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	state conversation.State
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Update runs fn with the user's state under that user's lock, creating the
// state on first use.
func (s *Store) Update(userID string, fn func(st *conversation.State)) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

func (s *Store) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{}
		s.entries[userID] = e
	}
	return e
}

// Users returns the number of users with stored state.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
