package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session/http/dto"
	"github.com/ckckckcz/pulseprotect-sub000/internal/token"
)

// stubManagerFactory builds real managers over shared in-memory tiers, the
// same wiring the application container uses minus the database.
type stubManagerFactory struct {
	fast    token.Tier
	durable token.Tier
}

func newStubManagerFactory() *stubManagerFactory {
	return &stubManagerFactory{
		fast:    token.NewMemoryTier(nil),
		durable: token.NewMemoryTier(nil),
	}
}

func (f *stubManagerFactory) SessionFor(sessionID string) *session.Manager {
	store := token.NewStore(sessionID, f.fast, f.durable, token.StoreOptions{
		DefaultLifetime: time.Hour,
		MaxLifetime:     24 * time.Hour,
		Expiry:          session.TokenExpiry,
	}, nil)
	return session.NewManager(store, nil, nil, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessionRouter(t *testing.T, factory ManagerFactory) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(factory, "/login", discardLogger())

	router := gin.New()
	group := router.Group("/v1", SessionIDMiddleware(false, discardLogger()))
	group.POST("/session", handler.StoreHandler)
	group.GET("/session", handler.GetHandler)
	group.DELETE("/session", handler.DeleteHandler)
	return router
}

func signAccessToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   "user-123",
		"email": "user@example.com",
		"role":  "member",
		"exp":   time.Now().Add(expiresIn).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func TestSessionHandler_StoreHandler(t *testing.T) {
	t.Run("Success_PersistsTokenPair", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		body, _ := json.Marshal(dto.StoreTokensRequest{
			AccessToken:  signAccessToken(t, time.Hour),
			RefreshToken: "refresh-token",
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StoreTokensResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "session-1", response.SessionID)
		assert.True(t, response.Persisted)
		assert.True(t, response.Authenticated)
	})

	t.Run("Success_ExpiredTokenStoresButUnauthenticated", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		body, _ := json.Marshal(dto.StoreTokensRequest{
			AccessToken: signAccessToken(t, -time.Minute),
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StoreTokensResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Authenticated)
	})

	t.Run("Error_MissingAccessToken", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodPost, "/v1/session",
			bytes.NewReader([]byte(`{"refresh_token":"refresh-token"}`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodPost, "/v1/session",
			bytes.NewReader([]byte(`{not json`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_TokenWithWhitespace", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodPost, "/v1/session",
			bytes.NewReader([]byte(`{"access_token":"token with spaces"}`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSessionHandler_GetHandler(t *testing.T) {
	t.Run("Success_UnauthenticatedSession", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "session-1", response.SessionID)
		assert.False(t, response.Authenticated)
		assert.Nil(t, response.User)
	})

	t.Run("Success_AuthenticatedSessionWithClaims", func(t *testing.T) {
		factory := newStubManagerFactory()
		router := newSessionRouter(t, factory)

		body, _ := json.Marshal(dto.StoreTokensRequest{
			AccessToken:  signAccessToken(t, time.Hour),
			RefreshToken: "refresh-token",
		})
		storeReq := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader(body))
		storeReq.Header.Set("Content-Type", "application/json")
		storeReq.Header.Set(HeaderSessionID, "session-1")
		router.ServeHTTP(httptest.NewRecorder(), storeReq)

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Authenticated)
		require.NotNil(t, response.User)
		assert.Equal(t, "user-123", response.User.Subject)
		assert.Equal(t, "user@example.com", response.User.Email)
		assert.Equal(t, "member", response.User.Role)
		assert.NotNil(t, response.User.ExpiresAt)
	})

	t.Run("Success_MintsSessionWhenNonePresented", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.SessionID)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieSessionID, cookies[0].Name)
		assert.Equal(t, response.SessionID, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})
}

func TestSessionHandler_DeleteHandler(t *testing.T) {
	t.Run("Success_ClearsSession", func(t *testing.T) {
		factory := newStubManagerFactory()
		router := newSessionRouter(t, factory)

		body, _ := json.Marshal(dto.StoreTokensRequest{
			AccessToken:  signAccessToken(t, time.Hour),
			RefreshToken: "refresh-token",
		})
		storeReq := httptest.NewRequest(http.MethodPost, "/v1/session", bytes.NewReader(body))
		storeReq.Header.Set("Content-Type", "application/json")
		storeReq.Header.Set(HeaderSessionID, "session-1")
		router.ServeHTTP(httptest.NewRecorder(), storeReq)

		deleteReq := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
		deleteReq.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, deleteReq)
		assert.Equal(t, http.StatusNoContent, w.Code)

		getReq := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		getReq.Header.Set(HeaderSessionID, "session-1")

		w = httptest.NewRecorder()
		router.ServeHTTP(w, getReq)

		var response dto.SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Authenticated)
	})

	t.Run("Success_Idempotent", func(t *testing.T) {
		router := newSessionRouter(t, newStubManagerFactory())

		req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
		req.Header.Set(HeaderSessionID, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
