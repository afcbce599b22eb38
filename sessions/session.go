package sessions

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RefreshAccessTokenError is the error flag carried by a session whose refresh failed.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// Role is the dashboard role of the signed-in user.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole normalises a backend role string. Unknown or empty roles become staff.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleStaff
	}
}

// Session is one authenticated user's credential state.
// A session is created on login, replaced whenever the access token is
// refreshed and deleted on sign-out or when the refresh fails for good.
type Session struct {
	ID      string `json:"id"`      // Session identifier (uuid), also the artifact jti
	Subject string `json:"subject"` // Backend user id
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Role    Role   `json:"role"`

	AccessToken        string    `json:"accessToken,omitempty"`
	RefreshToken       string    `json:"refreshToken,omitempty"`
	AccessTokenExpires time.Time `json:"accessTokenExpires"`
	Error              string    `json:"error,omitempty"`

	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"` // Absolute end of the session artifact
}

// Usable reports whether the access token may be attached to API calls.
func (s *Session) Usable() bool {
	return s != nil && s.AccessToken != "" && s.Error == ""
}

// NeedsRefresh reports whether the access token is expired or expires within skew.
func (s *Session) NeedsRefresh(now time.Time, skew time.Duration) bool {
	if s.AccessToken == "" || s.AccessTokenExpires.IsZero() {
		return true
	}
	return !now.Before(s.AccessTokenExpires.Add(-skew))
}

// Expired reports whether the session artifact lifetime is over.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a copy that can be mutated without affecting s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// WithRefreshError returns a copy flagged as failed to refresh.
func (s *Session) WithRefreshError() *Session {
	c := s.Clone()
	c.Error = RefreshAccessTokenError
	return c
}

// New starts a session that lives for maxAge from now.
func New(now time.Time, maxAge time.Duration) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Role:      RoleStaff,
		IssuedAt:  now,
		ExpiresAt: now.Add(maxAge),
	}
}

// SignedOutError marks the tombstone left behind by a sign-out so a replayed
// cookie cannot bring the session back.
const SignedOutError = "SignedOutError"

// Tombstone returns the token-free record kept for a session after sign-out.
func (s *Session) Tombstone() *Session {
	return &Session{
		ID:        s.ID,
		Subject:   s.Subject,
		Role:      s.Role,
		Error:     SignedOutError,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
