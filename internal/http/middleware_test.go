package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/session/http"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimitMiddleware(t *testing.T) {
	newLimitedRouter := func(t *testing.T, rps float64, burst int) *gin.Engine {
		t.Helper()

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(sessionHTTP.SessionIDMiddleware(false, discardLogger()))
		router.Use(RateLimitMiddleware(rps, burst, discardLogger()))
		router.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	probe := func(router *gin.Engine, sessionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(sessionHTTP.HeaderSessionID, sessionID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success_WithinBurst", func(t *testing.T) {
		router := newLimitedRouter(t, 1, 3)

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, probe(router, "session-1").Code)
		}
	})

	t.Run("Error_BurstExhausted", func(t *testing.T) {
		router := newLimitedRouter(t, 0.01, 2)

		require.Equal(t, http.StatusOK, probe(router, "session-1").Code)
		require.Equal(t, http.StatusOK, probe(router, "session-1").Code)

		w := probe(router, "session-1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("Success_SessionsAreLimitedIndependently", func(t *testing.T) {
		router := newLimitedRouter(t, 0.01, 1)

		require.Equal(t, http.StatusOK, probe(router, "session-1").Code)
		require.Equal(t, http.StatusTooManyRequests, probe(router, "session-1").Code)

		assert.Equal(t, http.StatusOK, probe(router, "session-2").Code)
	})
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthHandler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Run("Success_Ready", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/ready", ReadinessHandler(context.Background()))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_NotReadyWhileShuttingDown", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/ready", ReadinessHandler(ctx))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
