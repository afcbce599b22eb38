package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type storedSession struct {
	session   Session
	expiresAt time.Time
}

// InMemoryStore is a process-local Store. Sessions do not survive a restart;
// the signed cookie re-seeds them on the next request.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]storedSession),
	}
}

// Get retrieves a session by ID
func (r *InMemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	stored, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, errs.ErrSessionNotFound
	}
	if !stored.expiresAt.IsZero() && !NowTimeFunc().Before(stored.expiresAt) {
		r.mu.Lock()
		if current, ok := r.sessions[sessionID]; ok && current.expiresAt.Equal(stored.expiresAt) {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
		return nil, errs.ErrSessionNotFound
	}

	// Return a copy so callers cannot mutate the stored session
	s := stored.session
	return &s, nil
}

// Upsert creates or updates a session
func (r *InMemoryStore) Upsert(_ context.Context, session *Session, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = NowTimeFunc().Add(ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = storedSession{session: *session, expiresAt: expiresAt}
	return nil
}

// Delete removes a session
func (r *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// DeleteExpired drops every session whose TTL has passed and returns how many were removed.
func (r *InMemoryStore) DeleteExpired() int {
	now := NowTimeFunc()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, stored := range r.sessions {
		if !stored.expiresAt.IsZero() && !now.Before(stored.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
