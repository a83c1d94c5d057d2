package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "user@example.com", false},
		{"valid email with plus", "user+tag@example.com", false},
		{"valid email with dots", "first.last@sub.example.com", false},
		{"missing at sign", "userexample.com", true},
		{"missing domain", "user@", true},
		{"missing tld", "user@example", true},
		{"whitespace", "user @example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Email.Validate(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"international format", "+628123456789", false},
		{"local format", "08123456789", false},
		{"with separators", "0812-3456-789", false},
		{"with spaces", "0812 3456 789", false},
		{"too short", "0812", true},
		{"letters", "not-a-phone", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PhoneNumber.Validate(tt.phone)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("token-value"))
	assert.NoError(t, NoWhitespace.Validate("token value inside"))
	assert.Error(t, NoWhitespace.Validate(" leading"))
	assert.Error(t, NoWhitespace.Validate("trailing "))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
}

func TestPositiveAmount(t *testing.T) {
	assert.NoError(t, PositiveAmount.Validate(int64(149000)))
	assert.NoError(t, PositiveAmount.Validate(1))
	assert.Error(t, PositiveAmount.Validate(int64(0)))
	assert.Error(t, PositiveAmount.Validate(int64(-100)))
	assert.Error(t, PositiveAmount.Validate("not a number"))
}

func TestWrapValidationError(t *testing.T) {
	t.Run("Success_NilStaysNil", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("Success_WrapsAsInvalidInput", func(t *testing.T) {
		err := WrapValidationError(assert.AnError)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), assert.AnError.Error())
	})
}
