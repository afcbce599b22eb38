package auth

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/rs/zerolog/log"
)

const maxBufferedBody = 4 << 20

type contextKey int

const (
	sessionIDKey contextKey = iota
	retriedKey
)

// WithSessionID attaches the session whose token authenticates outgoing calls.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// MarkRetried returns a copy of req that will not be retried after a 401.
func MarkRetried(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), retriedKey, true))
}

func IsRetried(req *http.Request) bool {
	retried, _ := req.Context().Value(retriedKey).(bool)
	return retried
}

// TokenSource supplies and renews session credentials. *Manager implements it.
type TokenSource interface {
	Current(ctx context.Context, sessionID string) (*sessions.Session, error)
	RefreshAfterUnauthorized(ctx context.Context, sessionID, rejected string) (*sessions.Session, error)
}

var _ TokenSource = (*Manager)(nil)

// Transport attaches the session's bearer token to outgoing API calls and,
// on the first 401, refreshes the session and re-sends the request once.
type Transport struct {
	Base     http.RoundTripper
	Sessions TokenSource
	Metrics  *metrics.Metrics
	Timeout  time.Duration // Per attempt; zero means none
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sessionID, hasSession := SessionIDFromContext(req.Context())

	accessToken := ""
	if hasSession {
		s, err := t.Sessions.Current(req.Context(), sessionID)
		if err == nil && s.Usable() {
			accessToken = s.AccessToken
		} else if err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Transport: sending unauthenticated")
		}
	}

	resp, err := t.attempt(req, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !hasSession || IsRetried(req) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	original, err := buffer(resp)
	if err != nil {
		return nil, err
	}

	refreshed, err := t.Sessions.RefreshAfterUnauthorized(req.Context(), sessionID, accessToken)
	if err != nil || !refreshed.Usable() {
		log.Debug().Err(err).Str("session_id", sessionID).Str("url", req.URL.Redacted()).Msg("Transport: refresh failed, returning 401")
		return original, nil
	}

	retry := MarkRetried(req)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return original, nil
		}
		retry.Body = body
	}

	t.Metrics.UnauthorizedRetry()
	log.Debug().Str("session_id", sessionID).Str("url", req.URL.Redacted()).Msg("Transport: retrying with refreshed token")
	return t.attempt(retry, refreshed.AccessToken)
}

func (t *Transport) attempt(req *http.Request, accessToken string) (*http.Response, error) {
	ctx := req.Context()
	cancel := context.CancelFunc(func() {})
	if t.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
	}

	out := req.Clone(ctx)
	if accessToken != "" {
		out.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		out.Header.Del("Authorization")
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// buffer reads and closes the response body so the response can be returned
// after the connection is released.
func buffer(resp *http.Response) (*http.Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedBody))
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
