package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/jrsteele09/scaffold-dashboard/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultRefreshSkew    = 5 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	defaultSessionMaxAge  = 30 * 24 * time.Hour
)

// SignOutFunc is notified once every time a session is signed out.
type SignOutFunc func(sessionID, reason string)

// Manager owns the session lifecycle: sign-in, lookup with proactive
// refresh, refresh after a rejected call, and sign-out.
type Manager struct {
	backend   Backend
	store     sessions.Store
	refresher *Refresher
	metrics   *metrics.Metrics

	maxAge  time.Duration
	skew    time.Duration
	nowTime func() time.Time // nowTime function (injectable for testing)

	mu        sync.RWMutex
	onSignOut []SignOutFunc
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithRefreshSkew sets how long before expiry an access token is refreshed.
func WithRefreshSkew(skew time.Duration) ManagerOption {
	return func(m *Manager) {
		m.skew = skew
	}
}

// WithSessionMaxAge sets the absolute session lifetime.
func WithSessionMaxAge(maxAge time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxAge = maxAge
	}
}

// WithRefreshTimeout bounds the shared refresh call.
func WithRefreshTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refresher.timeout = timeout
	}
}

func WithSignOutListener(fn SignOutFunc) ManagerOption {
	return func(m *Manager) {
		m.onSignOut = append(m.onSignOut, fn)
	}
}

// NewManager initializes a Manager over the backend and session store.
func NewManager(b Backend, store sessions.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:   b,
		store:     store,
		refresher: newRefresher(b, store, nil),
		maxAge:    defaultSessionMaxAge,
		skew:      defaultRefreshSkew,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.refresher.metrics = m.metrics
	m.refresher.skew = m.skew
	m.refresher.nowTime = m.nowTime
	m.refresher.onFailure = func(ctx context.Context, s *sessions.Session) {
		m.end(ctx, s, metrics.SignOutRefreshFailed)
	}
	return m
}

// Refresher exposes the coordinator used by the manager.
func (m *Manager) Refresher() *Refresher {
	return m.refresher
}

// OnSignOut registers a listener called after every sign-out.
func (m *Manager) OnSignOut(fn SignOutFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSignOut = append(m.onSignOut, fn)
}

// SignIn exchanges credentials with the backend and stores the new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*sessions.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errs.ErrMissingCredentials
	}

	data, err := m.backend.Login(ctx, email, password)
	if err != nil {
		var apiErr *backend.APIError
		if errs.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			m.metrics.Login(metrics.LoginRejected)
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidCredentials, err)
		}
		m.metrics.Login(metrics.LoginError)
		return nil, errors.Wrap(err, "login request failed")
	}

	s := sessions.New(m.nowTime(), m.maxAge)
	s.Subject = data.ID
	s.Role = sessions.ParseRole(data.Role)
	if data.User != nil {
		if s.Subject == "" {
			s.Subject = data.User.ID
		}
		if data.Role == "" {
			s.Role = sessions.ParseRole(data.User.Role)
		}
		s.Email = data.User.Email
		s.Name = data.User.DisplayName()
	}
	if s.Email == "" {
		s.Email = email
	}
	if s.Name == "" {
		s.Name = s.Email
	}
	s.AccessToken = data.AccessToken
	s.RefreshToken = data.RefreshToken
	s.AccessTokenExpires = token.DecodeExpiry(data.AccessToken)

	if err := m.store.Upsert(ctx, s, m.maxAge); err != nil {
		m.metrics.Login(metrics.LoginError)
		return nil, errors.Wrap(err, "storing new session")
	}

	m.metrics.Login(metrics.LoginSuccess)
	log.Info().Str("session_id", s.ID).Str("subject", s.Subject).Str("role", string(s.Role)).Msg("SignIn: session created")
	return s.Clone(), nil
}

// Current returns the stored session, refreshing it first when the access
// token is about to expire. A session that cannot be used any more yields
// errs.ErrSessionExpired.
func (m *Manager) Current(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if sessionID == "" {
		return nil, errs.ErrSessionNotFound
	}
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.ensureFresh(ctx, s)
}

// Resolve maps a verified session artifact onto the authoritative stored
// session. When the store no longer knows the session (memory store after a
// restart) it is seeded again from the artifact.
func (m *Manager) Resolve(ctx context.Context, artifact *sessions.Session) (*sessions.Session, error) {
	if artifact == nil || artifact.ID == "" {
		return nil, errs.ErrInvalidSession
	}

	s, err := m.store.Get(ctx, artifact.ID)
	switch {
	case err == nil:
	case errs.Is(err, errs.ErrSessionNotFound):
		if artifact.Error != "" {
			return nil, errs.ErrSessionExpired
		}
		ttl := artifact.ExpiresAt.Sub(m.nowTime())
		if ttl <= 0 {
			return nil, errs.ErrSessionExpired
		}
		if err := m.store.Upsert(ctx, artifact, ttl); err != nil {
			return nil, errors.Wrap(err, "re-seeding session")
		}
		log.Debug().Str("session_id", artifact.ID).Msg("Resolve: session re-seeded from cookie")
		s = artifact.Clone()
	default:
		return nil, err
	}

	return m.ensureFresh(ctx, s)
}

// RefreshAfterUnauthorized is called once a request carrying the rejected
// access token came back 401.
func (m *Manager) RefreshAfterUnauthorized(ctx context.Context, sessionID, rejected string) (*sessions.Session, error) {
	return m.refresher.Shared(ctx, sessionID, rejected)
}

// SignOut ends the session. Signing out an unknown or already signed-out
// session is a no-op.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	s, err := m.store.Get(ctx, sessionID)
	if errs.Is(err, errs.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Error == sessions.SignedOutError {
		return nil
	}
	return m.end(ctx, s, metrics.SignOutUser)
}

func (m *Manager) ensureFresh(ctx context.Context, s *sessions.Session) (*sessions.Session, error) {
	if s.Error != "" {
		return nil, errs.ErrSessionExpired
	}
	now := m.nowTime()
	if s.Expired(now) {
		return nil, errs.ErrSessionExpired
	}
	if !s.NeedsRefresh(now, m.skew) {
		return s, nil
	}

	refreshed, err := m.refresher.Shared(ctx, s.ID, s.AccessToken)
	if err != nil {
		return nil, err
	}
	if !refreshed.Usable() {
		return nil, errs.ErrSessionExpired
	}
	return refreshed, nil
}

// end leaves a token-free tombstone for the rest of the session lifetime so
// the cookie cannot re-seed it. It holds the session lock the refresher takes
// before storing new tokens, so a refresh already in flight cannot undo it.
// Ending a session that is already ended does nothing.
func (m *Manager) end(ctx context.Context, s *sessions.Session, reason string) error {
	unlock := m.refresher.lock(s.ID)
	if current, err := m.store.Get(ctx, s.ID); err == nil && current.Error == sessions.SignedOutError {
		unlock()
		return nil
	}

	var err error
	ttl := s.ExpiresAt.Sub(m.nowTime())
	if ttl > 0 {
		err = m.store.Upsert(ctx, s.Tombstone(), ttl)
	}
	if err != nil {
		log.Err(err).Str("session_id", s.ID).Msg("SignOut: tombstone not stored, deleting")
		err = m.store.Delete(ctx, s.ID)
	} else if ttl <= 0 {
		err = m.store.Delete(ctx, s.ID)
	}
	unlock()

	m.metrics.SignOut(reason)
	log.Info().Str("session_id", s.ID).Str("reason", reason).Msg("SignOut: session ended")

	m.mu.RLock()
	listeners := append([]SignOutFunc(nil), m.onSignOut...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(s.ID, reason)
	}
	return err
}
