package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/internal/utils"
	"github.com/rs/zerolog/log"
)

type sessionUser struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SessionResponse mirrors what the browser gets from getSession.
type SessionResponse struct {
	User        *sessionUser `json:"user,omitempty"`
	AccessToken string       `json:"accessToken,omitempty"`
	Error       string       `json:"error,omitempty"`
	Expires     *time.Time   `json:"expires,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("writeJSON: encoding response")
	}
}

// SessionHandler returns the current session, or {} when signed out.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artifact, err := s.sessionArtifact(r)
		if err != nil {
			writeJSON(w, http.StatusOK, SessionResponse{})
			return
		}
		session, err := s.sessions.Resolve(r.Context(), artifact)
		if err != nil {
			s.ClearSessionCookie(w, r)
			writeJSON(w, http.StatusOK, SessionResponse{})
			return
		}
		s.syncSessionCookie(w, r, artifact, session)

		writeJSON(w, http.StatusOK, SessionResponse{
			User: &sessionUser{
				ID:    session.Subject,
				Role:  string(session.Role),
				Email: session.Email,
				Name:  session.Name,
			},
			AccessToken: session.AccessToken,
			Error:       session.Error,
			Expires:     utils.Ptr(session.ExpiresAt),
		})
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) MetricsHandler() http.HandlerFunc {
	h := s.metrics.Handler()
	return func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	}
}
