package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
)

const (
	PathLogin          = "/auth/login"
	PathRefreshToken   = "/auth/refresh-token"
	PathForgotPassword = "/auth/forgot-password"
	PathVerifyOTP      = "/auth/verify-otp"
	PathResetPassword  = "/auth/reset-password"
)

// CredentialPair is what the backend hands out on login and refresh.
// RefreshToken is empty when a refresh response did not rotate it.
type CredentialPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LoginData is the data of a successful login.
type LoginData struct {
	CredentialPair
	ID   string `json:"_id"`
	Role string `json:"role"`
	User *User  `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Login exchanges email and password for a credential pair.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginData, error) {
	data, err := send[*LoginData](ctx, c, http.MethodPost, PathLogin, nil, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if data == nil || data.AccessToken == "" {
		return nil, fmt.Errorf("[backend Login] %w: missing access token", errs.ErrInvalidResponse)
	}
	return data, nil
}

// RefreshToken exchanges a refresh token for a new credential pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (CredentialPair, error) {
	data, err := send[*CredentialPair](ctx, c, http.MethodPost, PathRefreshToken, nil, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return CredentialPair{}, err
	}
	if data == nil || data.AccessToken == "" {
		return CredentialPair{}, fmt.Errorf("[backend RefreshToken] %w: missing access token", errs.ErrInvalidResponse)
	}
	return *data, nil
}

// RequestPasswordReset asks the backend to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := send[json.RawMessage](ctx, c, http.MethodPost, PathForgotPassword, nil, emailRequest{Email: email})
	return err
}

func (c *Client) VerifyResetOTP(ctx context.Context, email, otp string) error {
	_, err := send[json.RawMessage](ctx, c, http.MethodPost, PathVerifyOTP, nil, otpRequest{Email: email, OTP: otp})
	return err
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	_, err := send[json.RawMessage](ctx, c, http.MethodPost, PathResetPassword, nil, resetPasswordRequest{
		Email:       email,
		OTP:         otp,
		NewPassword: newPassword,
	})
	return err
}
