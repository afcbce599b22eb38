package auth

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/jrsteele09/scaffold-dashboard/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Backend is the part of the REST API the auth package depends on.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginData, error)
	RefreshToken(ctx context.Context, refreshToken string) (backend.CredentialPair, error)
}

const lockStripes = 64

// Refresher exchanges refresh tokens and makes sure at most one exchange per
// session is in flight at a time.
type Refresher struct {
	backend Backend
	store   sessions.Store
	metrics *metrics.Metrics
	group   singleflight.Group
	locks   [lockStripes]sync.Mutex

	timeout time.Duration
	skew    time.Duration
	nowTime func() time.Time

	// onFailure ends the session after a refresh failed. Runs once per cohort.
	onFailure func(ctx context.Context, s *sessions.Session)
}

func newRefresher(b Backend, store sessions.Store, m *metrics.Metrics) *Refresher {
	return &Refresher{
		backend: b,
		store:   store,
		metrics: m,
		timeout: defaultRefreshTimeout,
		skew:    defaultRefreshSkew,
		nowTime: time.Now,
	}
}

// Refresh returns the refreshed session. It never fails: on any error the
// returned copy carries sessions.RefreshAccessTokenError and the caller must
// check it.
func (r *Refresher) Refresh(ctx context.Context, s *sessions.Session) *sessions.Session {
	if s.RefreshToken == "" {
		r.metrics.Refresh(metrics.RefreshNoRefreshToken)
		log.Warn().Str("session_id", s.ID).Msg("Refresh: session has no refresh token")
		out := s.WithRefreshError()
		out.AccessToken = ""
		return out
	}

	pair, err := r.backend.RefreshToken(ctx, s.RefreshToken)
	if err != nil {
		r.metrics.Refresh(metrics.RefreshFailure)
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Refresh: backend rejected refresh")
		return s.WithRefreshError()
	}

	out := s.Clone()
	out.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		out.RefreshToken = pair.RefreshToken
	}
	out.AccessTokenExpires = token.DecodeExpiry(pair.AccessToken)
	out.Error = ""

	r.metrics.Refresh(metrics.RefreshSuccess)
	log.Debug().Str("session_id", s.ID).Time("expires", out.AccessTokenExpires).Msg("Refresh: access token refreshed")
	return out
}

// Shared joins (or starts) the one in-flight refresh for the session and
// returns its outcome. rejected is the access token the caller saw fail; when
// the stored session already carries a different, still valid token it is
// returned without calling the backend.
//
// The returned session may carry an error flag, in which case the session has
// already been signed out.
func (r *Refresher) Shared(ctx context.Context, sessionID, rejected string) (*sessions.Session, error) {
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(sessionID, func() (interface{}, error) {
		return r.refreshLatest(detached, sessionID, rejected)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sessions.Session).Clone(), nil
	}
}

func (r *Refresher) refreshLatest(ctx context.Context, sessionID, rejected string) (*sessions.Session, error) {
	done := r.metrics.RefreshStarted()
	defer done()

	latest, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if latest.Error != "" {
		// Already failed or signed out; the cohort that saw it fail signed it out.
		return latest, nil
	}
	if latest.Usable() && latest.AccessToken != rejected && !latest.NeedsRefresh(r.nowTime(), r.skew) {
		r.metrics.Refresh(metrics.RefreshReused)
		return latest, nil
	}

	backendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	refreshed := r.Refresh(backendCtx, latest)
	cancel()

	unlock := r.lock(sessionID)
	current, err := r.store.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	if current.Error == sessions.SignedOutError {
		unlock()
		log.Debug().Str("session_id", sessionID).Msg("Refresh: session signed out while refreshing, result dropped")
		return current, nil
	}

	if refreshed.Error != "" {
		unlock()
		if r.onFailure != nil {
			r.onFailure(ctx, refreshed)
		}
		return refreshed, nil
	}

	defer unlock()
	ttl := refreshed.ExpiresAt.Sub(r.nowTime())
	if ttl <= 0 {
		return nil, errs.ErrSessionExpired
	}
	if err := r.store.Upsert(ctx, refreshed, ttl); err != nil {
		return nil, errors.Wrap(err, "storing refreshed session")
	}
	return refreshed, nil
}

// lock serialises the writes that end or replace one session's tokens.
// Never hold it across a backend call.
func (r *Refresher) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &r.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
