package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/sessions"
)

const (
	// sessionCookieName carries the signed session artifact
	sessionCookieName = "dashboard_session"
	// resetFlowCookieName tracks a password reset between its pages
	resetFlowCookieName = "reset_flow"
)

type contextKey string

const contextKeySession contextKey = "session"

func withSession(ctx context.Context, s *sessions.Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// sessionFromContext returns the session RequireSession resolved, or nil.
func sessionFromContext(ctx context.Context) *sessions.Session {
	s, _ := ctx.Value(contextKeySession).(*sessions.Session)
	return s
}

// sessionArtifact decodes and verifies the session cookie.
func (s *Server) sessionArtifact(r *http.Request) (*sessions.Session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(cookie.Value)
}

// SetSessionCookie writes the signed session for the rest of its lifetime.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *sessions.Session) error {
	value, err := s.codec.Encode(session)
	if err != nil {
		return err
	}
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	setCookie(w, r, sessionCookieName, value, maxAge)
	return nil
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	setCookie(w, r, sessionCookieName, "", -1)
}

func setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// safeCallbackURL keeps post-login redirects on this site and away from the
// auth pages.
func safeCallbackURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return RouteDashboard
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return RouteDashboard
	}
	if ClassifyRoute(u.Path) == RouteAuth {
		return RouteDashboard
	}
	return u.RequestURI()
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	redirectSuccess(w, r, path+sep+"error="+url.QueryEscape(errorMsg))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
