package dto

import (
	"time"

	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
)

// SessionResponse describes the authentication state of a browser session.
type SessionResponse struct {
	SessionID     string        `json:"session_id"`
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
}

// UserResponse carries the identity claims decoded from the access token.
type UserResponse struct {
	Subject   string     `json:"subject"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// StoreTokensResponse reports the outcome of a token handover.
type StoreTokensResponse struct {
	SessionID     string `json:"session_id"`
	Persisted     bool   `json:"persisted"`
	Authenticated bool   `json:"authenticated"`
}

// MapClaimsToUserResponse converts decoded token claims to an API response.
func MapClaimsToUserResponse(claims *session.Claims) *UserResponse {
	if claims == nil {
		return nil
	}

	response := &UserResponse{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	if claims.HasExpiry() {
		expiresAt := claims.ExpiresAt
		response.ExpiresAt = &expiresAt
	}

	return response
}
