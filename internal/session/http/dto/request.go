// Package dto provides data transfer objects for session HTTP request and
// response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/ckckckcz/pulseprotect-sub000/internal/validation"
)

// StoreTokensRequest contains the token pair handed over after a login or an
// out-of-band refresh. The refresh token is optional so a rotated access
// token can be stored without touching the current refresh token.
type StoreTokensRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token"`
}

// Validate checks if the store tokens request is valid.
func (r *StoreTokensRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AccessToken,
			validation.Required,
			customValidation.NoWhitespace,
		),
		validation.Field(&r.RefreshToken,
			customValidation.NoWhitespace,
		),
	)
}
