// Package session owns one snippet engine per editing session. Sessions share
// a single id generator so ids stay unique across the process, but never share
// engine state.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
)

// Session is one engine plus the lock that serialises access to it.
type Session struct {
	id      uuid.UUID
	name    string
	created time.Time

	mu      sync.Mutex
	manager *snippets.Manager
}

func (s *Session) ID() uuid.UUID      { return s.id }
func (s *Session) Name() string       { return s.name }
func (s *Session) Created() time.Time { return s.created }

// Do runs fn with exclusive access to the session's engine. fn must not keep
// the Manager after it returns.
func (s *Session) Do(fn func(m *snippets.Manager) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.manager)
}

// Observer hands out one engine observer per session and is told when that
// session closes.
type Observer interface {
	Session(id string) snippets.Observer
	Forget(id string)
}

// Store tracks open sessions.
type Store struct {
	ids    *core.IDGenerator
	logger zerolog.Logger
	opts   []snippets.Option

	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	observers []Observer
}

// NewStore creates a store. opts are applied to every engine it opens, after
// the store's own logger.
func NewStore(logger zerolog.Logger, opts ...snippets.Option) *Store {
	return &Store{
		ids:      core.NewIDGenerator(),
		logger:   logger,
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// IDs exposes the shared generator, for definition sources that must draw
// from the same id space.
func (st *Store) IDs() *core.IDGenerator { return st.ids }

// Attach registers o for sessions opened from now on.
func (st *Store) Attach(o Observer) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observers = append(st.observers, o)
}

// Open starts a new session.
func (st *Store) Open(name string) *Session {
	id := uuid.New()
	logger := snippets.SessionLogger(st.logger, id.String())

	opts := append([]snippets.Option{snippets.WithLogger(logger)}, st.opts...)
	st.mu.RLock()
	for _, o := range st.observers {
		opts = append(opts, snippets.WithObserver(o.Session(id.String())))
	}
	st.mu.RUnlock()

	s := &Session{
		id:      id,
		name:    name,
		created: time.Now(),
		manager: snippets.NewManager(st.ids, opts...),
	}

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	logger.Info().Str("name", name).Msg("session opened")
	return s
}

// Get returns an open session.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	return s, nil
}

// Close forgets a session. Its engine is dropped with it.
func (st *Store) Close(id uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	delete(st.sessions, id)
	for _, o := range st.observers {
		o.Forget(id.String())
	}
	st.logger.Info().Str("session", id.String()).Msg("session closed")
	return nil
}

// List returns the open sessions, oldest first.
func (st *Store) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].created.Equal(out[j].created) {
			return out[i].created.Before(out[j].created)
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}
