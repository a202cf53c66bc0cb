// Package auth inspects the session token issued at login.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

// ExpiresAt reads the exp claim without verifying the signature; the client
// never holds the server's key. ok is false when the token is not a JWT or
// carries no expiry.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// CheckExpiry returns ErrTokenExpired when token has an expiry at or before
// now. Tokens without a readable expiry are left for the server to reject.
func CheckExpiry(token string, now time.Time) error {
	exp, ok := ExpiresAt(token)
	if ok && !now.Before(exp) {
		return ErrTokenExpired
	}
	return nil
}
