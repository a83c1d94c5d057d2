package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestDecodeToken(t *testing.T) {
	t.Run("Success_FullClaims", func(t *testing.T) {
		issuedAt := time.Now().Truncate(time.Second)
		expiresAt := issuedAt.Add(time.Hour)
		tokenString := signToken(t, jwt.MapClaims{
			"sub":   "user-123",
			"email": "user@example.com",
			"role":  "member",
			"iat":   issuedAt.Unix(),
			"exp":   expiresAt.Unix(),
		})

		claims, ok := DecodeToken(tokenString)
		require.True(t, ok)
		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, "member", claims.Role)
		assert.True(t, claims.IssuedAt.Equal(issuedAt))
		assert.True(t, claims.ExpiresAt.Equal(expiresAt))
		assert.True(t, claims.HasExpiry())
	})

	t.Run("Success_MissingExpiry", func(t *testing.T) {
		tokenString := signToken(t, jwt.MapClaims{"sub": "user-123"})

		claims, ok := DecodeToken(tokenString)
		require.True(t, ok)
		assert.Equal(t, "user-123", claims.Subject)
		assert.False(t, claims.HasExpiry())
	})

	t.Run("Success_SignatureIsNotChecked", func(t *testing.T) {
		tokenString := signToken(t, jwt.MapClaims{"sub": "user-123"})

		// Corrupt the signature segment; the claims still decode
		claims, ok := DecodeToken(tokenString[:len(tokenString)-4] + "XXXX")
		require.True(t, ok)
		assert.Equal(t, "user-123", claims.Subject)
	})

	t.Run("Error_MalformedToken", func(t *testing.T) {
		_, ok := DecodeToken("a.b.c")
		assert.False(t, ok)
	})

	t.Run("Error_EmptyToken", func(t *testing.T) {
		_, ok := DecodeToken("")
		assert.False(t, ok)
	})
}

func TestTokenExpiry(t *testing.T) {
	t.Run("Success_ExtractsDeadline", func(t *testing.T) {
		expiresAt := time.Now().Truncate(time.Second).Add(time.Hour)
		tokenString := signToken(t, jwt.MapClaims{
			"sub": "user-123",
			"exp": expiresAt.Unix(),
		})

		deadline, ok := TokenExpiry(tokenString)
		require.True(t, ok)
		assert.True(t, deadline.Equal(expiresAt))
	})

	t.Run("Error_NoExpClaim", func(t *testing.T) {
		tokenString := signToken(t, jwt.MapClaims{"sub": "user-123"})

		_, ok := TokenExpiry(tokenString)
		assert.False(t, ok)
	})

	t.Run("Error_MalformedToken", func(t *testing.T) {
		_, ok := TokenExpiry("not-a-token")
		assert.False(t, ok)
	})
}
