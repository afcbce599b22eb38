package server

import (
	"net/http"
	"net/url"
	"strings"
)

// RouteClass is how the guard treats a path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAuth
)

// Decision is the guard's verdict for one request.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToDashboard
)

var protectedPrefixes = []string{
	RouteDashboard,
	RouteUsers,
	RouteClients,
	RouteJobs,
	RoutePostJob,
	RouteSettings,
}

// Paths the guard never looks at.
var guardBypassPrefixes = []string{
	RouteStatic,
	"/api/",
	RouteMetrics,
	RouteHealthz,
	RouteFavicon,
}

// ClassifyRoute matches by prefix, so /jobsearch is protected as well as
// /jobs/42. Only "/" itself is matched exactly.
func ClassifyRoute(path string) RouteClass {
	if path == RouteIndex {
		return RouteProtected
	}
	for _, prefix := range protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return RouteProtected
		}
	}
	if strings.HasPrefix(path, RouteAuthPrefix) {
		return RouteAuth
	}
	return RoutePublic
}

func Decide(path string, hasToken bool) Decision {
	switch ClassifyRoute(path) {
	case RouteProtected:
		if !hasToken {
			return RedirectToLogin
		}
	case RouteAuth:
		if hasToken && path != RouteLogout {
			return RedirectToDashboard
		}
	}
	return Allow
}

func bypassesGuard(path string) bool {
	for _, prefix := range guardBypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// LoginURL is the login page that returns to callback once signed in.
func LoginURL(callback string) string {
	return RouteLogin + "?" + callbackURLParam + "=" + url.QueryEscape(callback)
}

// RouteGuard redirects signed-out users away from protected pages and
// signed-in users away from the auth pages. A token is present when the
// session cookie verifies; whether the session is still alive is checked by
// RequireSession on the protected routes themselves.
func (s *Server) RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if bypassesGuard(path) {
			next.ServeHTTP(w, r)
			return
		}

		_, err := s.sessionArtifact(r)
		switch Decide(path, err == nil) {
		case RedirectToLogin:
			redirectSuccess(w, r, LoginURL(path))
		case RedirectToDashboard:
			redirectSuccess(w, r, RouteDashboard)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
