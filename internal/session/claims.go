// Package session manages authentication state for one browser session:
// claims decoding, expiry checks and the refresh-token exchange against the
// platform backend.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an access token.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// DecodeToken parses a token's claims without verifying its signature.
// Signature verification is the backend's responsibility; the service only
// inspects expiry and identity claims. Returns false on malformed input and
// never panics.
func DecodeToken(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	mapClaims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, mapClaims); err != nil {
		return nil, false
	}

	claims := &Claims{}

	if subject, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = subject
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}
	if issuedAt, err := mapClaims.GetIssuedAt(); err == nil && issuedAt != nil {
		claims.IssuedAt = issuedAt.Time
	}
	if expiresAt, err := mapClaims.GetExpirationTime(); err == nil && expiresAt != nil {
		claims.ExpiresAt = expiresAt.Time
	}

	return claims, true
}

// TokenExpiry extracts the expiry deadline from a token, reporting false when
// the token is malformed or carries no exp claim. Used by the token store to
// compute cache lifetimes.
func TokenExpiry(tokenString string) (time.Time, bool) {
	claims, ok := DecodeToken(tokenString)
	if !ok || !claims.HasExpiry() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}
