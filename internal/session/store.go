// Package session holds uploaded tables and their cleaning results
// between requests, keyed by an opaque identifier. Sessions live in
// memory only; nothing survives a process restart.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cleanbot/internal/cleaning"
)

// ErrNotFound is returned for unknown or expired session identifiers.
var ErrNotFound = errors.New("session not found")

// Session is one upload batch: the original tables, their upload-time
// stats, and the cleaning results once a run completed.
type Session struct {
	ID        string
	CreatedAt time.Time
	Tables    []*cleaning.Table
	Stats     []cleaning.QualityStats
	Results   []*cleaning.CleaningResult
}

// Cleaned reports whether a cleaning run has been stored.
func (s *Session) Cleaned() bool { return len(s.Results) > 0 }

// Store is the session lifecycle consumed by the transport layer. The
// cleaning core never touches it.
type Store interface {
	Create(tables []*cleaning.Table, stats []cleaning.QualityStats) *Session
	Get(id string) (*Session, error)
	SaveResults(id string, results []*cleaning.CleaningResult) error
}

// MemoryStore is the in-memory Store used in production; one process,
// one map, guarded by a mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create registers a new session and returns it with a fresh identifier.
func (s *MemoryStore) Create(tables []*cleaning.Table, stats []cleaning.QualityStats) *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Tables:    tables,
		Stats:     stats,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id or ErrNotFound.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// SaveResults attaches cleaning results to an existing session.
func (s *MemoryStore) SaveResults(id string, results []*cleaning.CleaningResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Results = results
	return nil
}
