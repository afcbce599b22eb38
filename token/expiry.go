package token

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// FallbackExpiry is assumed for access tokens whose expiry cannot be read.
const FallbackExpiry = 15 * time.Minute

// DecodeExpiry reads the exp claim of an access token without verifying it.
// Only the payload segment is decoded. Any decode failure yields
// now+FallbackExpiry; it never fails.
func DecodeExpiry(accessToken string) time.Time {
	exp, err := expirySeconds(accessToken)
	if err != nil || exp <= 0 {
		return NowTimeFunc().Add(FallbackExpiry)
	}
	return time.UnixMilli(int64(math.Round(exp * 1000)))
}

// expirySeconds returns exp as sent, fractional seconds included.
func expirySeconds(accessToken string) (float64, error) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return 0, jwtlib.ErrTokenMalformed
	}

	payload, err := jwtlib.NewParser(jwtlib.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return 0, err
	}

	claims := jwtlib.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0, err
	}

	// Validates the claim type; the value itself is read below because
	// NumericDate truncates to whole seconds.
	if _, err := claims.GetExpirationTime(); err != nil {
		return 0, err
	}
	exp, _ := claims["exp"].(float64)
	return exp, nil
}
