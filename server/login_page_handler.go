package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/scaffold-dashboard/backend"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	pageData
	Email       string // Preserve email on error
	CallbackURL string
}

// LoginPageHandler displays the login page (GET /auth/login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			pageData:    s.basePage(r, "Login", ""),
			Email:       r.URL.Query().Get("email"),
			CallbackURL: safeCallbackURL(r.URL.Query().Get(callbackURLParam)),
		}
		render(w, loginTmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		callback := safeCallbackURL(r.FormValue(callbackURLParam))

		renderLoginError := func(status int, msg string) {
			data := LoginPageData{
				pageData:    s.basePage(r, "Login", ""),
				Email:       email,
				CallbackURL: callback,
			}
			data.Error = msg
			render(w, loginTmpl, status, data)
		}

		session, err := s.sessions.SignIn(r.Context(), email, password)
		switch {
		case err == nil:
		case errs.Is(err, errs.ErrMissingCredentials):
			renderLoginError(http.StatusBadRequest, "Please provide email and password")
			return
		case errs.Is(err, errs.ErrInvalidCredentials):
			renderLoginError(http.StatusUnauthorized, backend.MessageFrom(err, "Invalid email or password"))
			return
		default:
			log.Err(err).Msg("Login: sign in failed")
			renderLoginError(http.StatusBadGateway, "Login failed, please try again")
			return
		}

		if err := s.SetSessionCookie(w, r, session); err != nil {
			log.Err(err).Str("session_id", session.ID).Msg("Login: failed to write session cookie")
			renderLoginError(http.StatusInternalServerError, "Login failed, please try again")
			return
		}
		redirectSuccess(w, r, callback)
	}
}

// LogoutHandler signs the session out and clears the cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if artifact, err := s.sessionArtifact(r); err == nil {
			if err := s.sessions.SignOut(r.Context(), artifact.ID); err != nil {
				log.Err(err).Str("session_id", artifact.ID).Msg("Logout: sign out failed")
			}
		}
		s.ClearSessionCookie(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}
