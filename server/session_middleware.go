package server

import (
	"net/http"

	"github.com/jrsteele09/scaffold-dashboard/auth"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/rs/zerolog/log"
)

// RequireSession resolves the cookie to the live session, refreshing its
// access token when due, and makes it available to the handler and to every
// API call made with the request context.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, err := s.sessionArtifact(r)
		if err != nil {
			s.endSession(w, r)
			return
		}

		session, err := s.sessions.Resolve(r.Context(), artifact)
		if err != nil {
			if !errs.Is(err, errs.ErrSessionExpired) {
				log.Err(err).Str("session_id", artifact.ID).Msg("RequireSession: resolving session")
			}
			s.endSession(w, r)
			return
		}

		s.syncSessionCookie(w, r, artifact, session)

		ctx := auth.WithSessionID(r.Context(), session.ID)
		ctx = withSession(ctx, session)
		next(w, r.WithContext(ctx))
	}
}

// syncSessionCookie re-issues the cookie when the stored tokens moved on.
func (s *Server) syncSessionCookie(w http.ResponseWriter, r *http.Request, artifact, session *sessions.Session) {
	if session.AccessToken == artifact.AccessToken && session.RefreshToken == artifact.RefreshToken {
		return
	}
	if err := s.SetSessionCookie(w, r, session); err != nil {
		log.Err(err).Str("session_id", session.ID).Msg("Failed to re-issue session cookie")
	}
}

// endSession drops the cookie and sends the user to log in again, coming back
// to the page they asked for.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	s.ClearSessionCookie(w, r)
	callback := r.URL.Path
	if r.Method != http.MethodGet {
		callback = RouteDashboard
	}
	redirectSuccess(w, r, LoginURL(callback))
}

// handleAPIError turns a failed backend call into a response. A 401 that
// survived the refresh means the session is over.
func (s *Server) handleAPIError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errs.Is(err, errs.ErrUnauthorized) {
		if session := sessionFromContext(r.Context()); session != nil {
			if signOutErr := s.sessions.SignOut(r.Context(), session.ID); signOutErr != nil {
				log.Err(signOutErr).Str("session_id", session.ID).Msg("handleAPIError: sign out")
			}
		}
		s.endSession(w, r)
		return true
	}
	return false
}
