package sessions

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const codecKeyInfo = "scaffold-dashboard session"

// Codec signs and verifies the session artifact carried by the browser.
// The artifact is an HS256 JWT whose key is derived from the configured secret.
type Codec struct {
	key []byte
}

type artifactClaims struct {
	Role               string `json:"role,omitempty"`
	Email              string `json:"email,omitempty"`
	Name               string `json:"name,omitempty"`
	AccessToken        string `json:"accessToken,omitempty"`
	RefreshToken       string `json:"refreshToken,omitempty"`
	AccessTokenExpires int64  `json:"accessTokenExpires,omitempty"` // epoch milliseconds
	Error              string `json:"error,omitempty"`
	jwtlib.RegisteredClaims
}

// NewCodec derives the signing key from secret with HKDF-SHA256.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sessions NewCodec] secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(codecKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sessions NewCodec] derive key: %w", err)
	}
	return &Codec{key: key}, nil
}

// Encode signs the session into its cookie value.
func (c *Codec) Encode(s *Session) (string, error) {
	if s == nil || s.ID == "" {
		return "", fmt.Errorf("[Codec Encode] session ID is required")
	}

	claims := artifactClaims{
		Role:         string(s.Role),
		Email:        s.Email,
		Name:         s.Name,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Error:        s.Error,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   s.Subject,
			ID:        s.ID,
			ExpiresAt: jwtlib.NewNumericDate(s.ExpiresAt),
		},
	}
	if !s.IssuedAt.IsZero() {
		claims.IssuedAt = jwtlib.NewNumericDate(s.IssuedAt)
	}
	if !s.AccessTokenExpires.IsZero() {
		claims.AccessTokenExpires = s.AccessTokenExpires.UnixMilli()
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[Codec Encode] sign: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, algorithm and expiry and returns the session.
// Every failure is reported as errs.ErrInvalidSession.
func (c *Codec) Decode(raw string) (*Session, error) {
	claims := &artifactClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims,
		func(*jwtlib.Token) (interface{}, error) { return c.key, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", errs.ErrInvalidSession)
	}

	s := &Session{
		ID:           claims.ID,
		Subject:      claims.Subject,
		Email:        claims.Email,
		Name:         claims.Name,
		Role:         ParseRole(claims.Role),
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		Error:        claims.Error,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.AccessTokenExpires > 0 {
		s.AccessTokenExpires = time.UnixMilli(claims.AccessTokenExpires)
	}
	return s, nil
}
