package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"ad-studio/internal/ids"
	"ad-studio/internal/studio"
)

// Factory builds a fresh studio session for id.
type Factory func(id string) *studio.Session

type Options struct {
	Factory Factory
	Logger  *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

type entry struct {
	session      *studio.Session
	lastActivity time.Time
}

// Store keeps studio sessions in memory, one per user.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	logger   *slog.Logger
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	factory := opts.Factory
	if factory == nil {
		factory = func(id string) *studio.Session { return studio.New(id, studio.Options{}) }
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions: make(map[string]*entry),
		factory:  factory,
		logger:   logger,
		now:      now,
	}
}

// Create starts a session under a new id.
func (s *Store) Create() *studio.Session {
	return s.GetOrCreate(ids.New())
}

func (s *Store) Get(id string) (*studio.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastActivity = s.now()
	return e.session, true
}

func (s *Store) GetOrCreate(id string) *studio.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(id).session
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return false
	}
	delete(s.sessions, id)
	e.session.Close()
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// LastActivity reports when id was last touched through the store.
func (s *Store) LastActivity(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return time.Time{}, false
	}
	return e.lastActivity, true
}

// Sweep evicts sessions idle for longer than ttl and closes their subscriptions. Sessions with a request in
// flight are kept regardless of age.
func (s *Store) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	evicted := 0
	for id, e := range s.sessions {
		if e.lastActivity.After(cutoff) || e.session.State() != studio.StateIdle {
			continue
		}
		delete(s.sessions, id)
		e.session.Close()
		evicted++
	}
	if evicted > 0 {
		s.logger.Info("evicted idle sessions", "count", evicted, "remaining", len(s.sessions))
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ttl)
		}
	}
}

func (s *Store) getOrCreateLocked(id string) *entry {
	if e, ok := s.sessions[id]; ok {
		e.lastActivity = s.now()
		return e
	}

	e := &entry{
		session:      s.factory(id),
		lastActivity: s.now(),
	}
	s.sessions[id] = e
	s.logger.Debug("session created", "session_id", id)
	return e
}
