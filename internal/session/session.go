// Package session holds the per-user editing state around a project tree.
//
// A Session owns its tree. Every mutation (a model response being applied,
// an editor replacing a file) runs under the session lock, so events for one
// session are processed strictly one after another.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/cosmos-link/webgen/internal/metrics"
	"github.com/cosmos-link/webgen/internal/project"
	"github.com/cosmos-link/webgen/internal/synchronizer"
)

// Session is one editing session
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	tree         *project.Tree
	selected     string
	lastResponse string
	log          []string
	updatedAt    time.Time
}

// Snapshot is a point-in-time copy of a session's state
type Snapshot struct {
	ID           string          `json:"session_id"`
	Files        []project.Entry `json:"files"`
	Selected     string          `json:"selected,omitempty"`
	LastResponse string          `json:"last_response,omitempty"`
	Log          []string        `json:"log"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// New creates a session with a freshly bootstrapped tree
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		tree:      project.Bootstrap(),
		log:       []string{},
		updatedAt: now,
	}
}

// ApplyResponse parses a raw model response and merges its files into the tree
func (s *Session) ApplyResponse(response string) synchronizer.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := synchronizer.ApplyText(s.tree, response)
	for _, c := range res.Changes {
		metrics.RecordFileChange(string(c.Action))
	}

	s.lastResponse = response
	s.appendLog("$ AI Response:", response)
	for _, c := range res.Changes {
		s.appendLog(fmt.Sprintf("%s %s", c.Action, c.Name))
	}
	s.touch()

	return res
}

// Edit replaces the content of an existing file.
// Unknown names are ignored and reported as false.
func (s *Session) Edit(name, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := s.tree.Replace(name, content)
	metrics.RecordEdit(applied)
	if applied {
		s.touch()
	}
	return applied
}

// Select marks a file as the one shown in the editor
func (s *Session) Select(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tree.Get(name); !ok {
		return false
	}
	s.selected = name
	s.touch()
	return true
}

// File returns one entry of the tree
func (s *Session) File(name string) (project.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Get(name)
}

// Files returns all entries of the tree in display order
func (s *Session) Files() []project.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Entries()
}

// Notify appends a human-readable notice to the session log
func (s *Session) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLog(msg)
	s.touch()
}

// Deploy records a simulated local deployment. Nothing is executed.
func (s *Session) Deploy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLog("Deploying locally...", "Application is now running on http://localhost:3000")
	s.touch()
}

// Snapshot returns a copy of the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := make([]string, len(s.log))
	copy(log, s.log)

	return Snapshot{
		ID:           s.ID,
		Files:        s.tree.Entries(),
		Selected:     s.selected,
		LastResponse: s.lastResponse,
		Log:          log,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.updatedAt,
	}
}

func (s *Session) appendLog(lines ...string) {
	s.log = append(s.log, lines...)
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
