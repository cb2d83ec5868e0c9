package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/dgallion1/ultratext/internal/pipeline"
	"github.com/dgallion1/ultratext/internal/session"
)

// sessionEntry is one editor behind the API. mu serialises every request
// on the session.
type sessionEntry struct {
	mu      sync.Mutex
	id      string
	editor  *session.Editor
	discard bool
	touched time.Time
}

// SessionStore is a thread-safe registry of editing sessions with idle
// eviction.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{entries: make(map[string]*sessionEntry), ttl: ttl}
}

// Create registers a new editor with an empty document.
func (s *SessionStore) Create(log *slog.Logger) *sessionEntry {
	e := &sessionEntry{id: pipeline.NewID(), touched: time.Now()}
	confirm := session.ConfirmFunc(func(context.Context) bool { return e.discard })
	e.editor = session.New(nil, confirm, log.With("session_id", e.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.id] = e
	return e
}

func (s *SessionStore) Get(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[id]
	if e != nil {
		e.touched = time.Now()
	}
	return e
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup drops sessions idle longer than the TTL and returns how many.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, e := range s.entries {
		if now.Sub(e.touched) > s.ttl {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// bind points the editor's file dialogs at path for the current request.
// Callers hold e.mu.
func (e *sessionEntry) bind(fs afero.Fs, path string, discard bool) {
	e.editor.SetHost(session.NewFileHost(fs, session.FixedPath(path)))
	e.discard = discard
}
