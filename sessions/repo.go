package sessions

import (
	"context"
	"time"
)

// Store holds the latest copy of every live session, keyed by session ID.
// It is the only shared mutable session state: login, refresh and sign-out
// write to it, everything else reads.
type Store interface {
	// Get returns the session or errs.ErrSessionNotFound when it is absent or expired
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Upsert creates or replaces a session. ttl bounds how long it is kept.
	Upsert(ctx context.Context, session *Session, ttl time.Duration) error

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
