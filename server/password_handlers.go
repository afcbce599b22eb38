package server

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/server/resetflow"
	"github.com/rs/zerolog/log"
)

const minPasswordLength = 8

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type passwordPageData struct {
	pageData
	Email string
}

func (s *Server) resetFlow(r *http.Request) (string, *resetflow.Flow, error) {
	cookie, err := r.Cookie(resetFlowCookieName)
	if err != nil {
		return "", nil, resetflow.ErrFlowNotFound
	}
	flow, err := s.resetFlows.Get(cookie.Value)
	if err != nil {
		return "", nil, err
	}
	return cookie.Value, flow, nil
}

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, passwordPageData{
			pageData: s.basePage(r, "Forgot password", ""),
			Email:    r.URL.Query().Get("email"),
		})
	}
}

// ForgotPasswordPostHandler asks the backend to email a one-time code and
// starts the reset flow.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.FormValue("email"))
		if email == "" {
			redirectWithError(w, r, RouteForgotPassword, "Please enter your email address")
			return
		}

		if err := s.api.RequestPasswordReset(r.Context(), email); err != nil {
			log.Err(err).Msg("ForgotPassword: request failed")
			redirectWithError(w, r, RouteForgotPassword, backend.MessageFrom(err, "Failed to send OTP"))
			return
		}

		flowID := uuid.NewString()
		if err := s.resetFlows.Upsert(flowID, &resetflow.Flow{Email: email, CreatedAt: resetflow.NowTimeFunc()}); err != nil {
			log.Err(err).Msg("ForgotPassword: storing reset flow")
			redirectWithError(w, r, RouteForgotPassword, "Failed to send OTP")
			return
		}
		setCookie(w, r, resetFlowCookieName, flowID, int(resetflow.FlowTTL.Seconds()))
		redirectSuccess(w, r, RouteVerifyOTP+"?message=OTP+sent+to+your+email")
	}
}

// VerifyOTPGetHandler renders the code entry page for a started flow.
func (s *Server) VerifyOTPGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("verify_otp.html")
	return func(w http.ResponseWriter, r *http.Request) {
		_, flow, err := s.resetFlow(r)
		if err != nil {
			redirectWithError(w, r, RouteForgotPassword, "Your reset request has expired, please start again")
			return
		}
		render(w, tmpl, http.StatusOK, passwordPageData{
			pageData: s.basePage(r, "Verify code", ""),
			Email:    flow.Email,
		})
	}
}

func (s *Server) VerifyOTPPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, flow, err := s.resetFlow(r)
		if err != nil {
			redirectWithError(w, r, RouteForgotPassword, "Your reset request has expired, please start again")
			return
		}

		otp := strings.TrimSpace(r.FormValue("otp"))
		if !otpPattern.MatchString(otp) {
			redirectWithError(w, r, RouteVerifyOTP, "Please enter the 6 digit code")
			return
		}

		if err := s.api.VerifyResetOTP(r.Context(), flow.Email, otp); err != nil {
			log.Debug().Err(err).Msg("VerifyOTP: code rejected")
			redirectWithError(w, r, RouteVerifyOTP, backend.MessageFrom(err, "Invalid OTP"))
			return
		}

		flow.OTP = otp
		flow.Verified = true
		if err := s.resetFlows.Upsert(flowID, flow); err != nil {
			log.Err(err).Msg("VerifyOTP: storing reset flow")
			redirectWithError(w, r, RouteVerifyOTP, "Invalid OTP")
			return
		}
		redirectSuccess(w, r, RouteResetPassword+"?message=OTP+verified+successfully")
	}
}

// ResetPasswordGetHandler renders the new password form once the code was verified.
func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("reset_password.html")
	return func(w http.ResponseWriter, r *http.Request) {
		_, flow, err := s.resetFlow(r)
		if err != nil || !flow.Verified {
			redirectWithError(w, r, RouteForgotPassword, "Your reset request has expired, please start again")
			return
		}
		render(w, tmpl, http.StatusOK, passwordPageData{
			pageData: s.basePage(r, "Reset password", ""),
			Email:    flow.Email,
		})
	}
}

func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flowID, flow, err := s.resetFlow(r)
		if err != nil || !flow.Verified {
			redirectWithError(w, r, RouteForgotPassword, "Your reset request has expired, please start again")
			return
		}

		newPassword := r.FormValue("newPassword")
		if len(newPassword) < minPasswordLength {
			redirectWithError(w, r, RouteResetPassword, "Password must be at least 8 characters")
			return
		}
		if newPassword != r.FormValue("confirmPassword") {
			redirectWithError(w, r, RouteResetPassword, "Passwords do not match")
			return
		}

		if err := s.api.ResetPassword(r.Context(), flow.Email, flow.OTP, newPassword); err != nil {
			log.Debug().Err(err).Msg("ResetPassword: rejected")
			redirectWithError(w, r, RouteResetPassword, backend.MessageFrom(err, "Password reset failed"))
			return
		}

		_ = s.resetFlows.Delete(flowID)
		setCookie(w, r, resetFlowCookieName, "", -1)
		redirectSuccess(w, r, RouteLogin+"?message=Password+reset+successfully")
	}
}
