package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cosmos-link/webgen/internal/metrics"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// Store keeps the live sessions of the process
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create starts a new bootstrapped session
func (st *Store) Create() *Session {
	s := New(uuid.New().String())

	st.mu.Lock()
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	metrics.SetSessionsActive(n)
	return s
}

// Get retrieves a session by id
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete ends a session
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	if _, ok := st.sessions[id]; !ok {
		st.mu.Unlock()
		return ErrNotFound
	}
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	metrics.SetSessionsActive(n)
	return nil
}

// List returns all sessions, oldest first
func (st *Store) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
