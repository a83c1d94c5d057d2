// Package http provides the session HTTP surface: the middleware that
// resolves the browser session identifier and the handlers for token
// persistence and sign-out.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderSessionID carries the session identifier for API clients.
	HeaderSessionID = "X-Session-Id"

	// CookieSessionID carries the session identifier for browsers.
	CookieSessionID = "pp_session"

	// cookieMaxAge keeps the browser session cookie for 30 days.
	cookieMaxAge = 30 * 24 * 60 * 60

	// contextKeySessionID is the gin context key for the resolved session ID.
	contextKeySessionID = "session_id"
)

// SessionIDMiddleware resolves the browser session identifier from the
// X-Session-Id header or the pp_session cookie, minting a new identifier
// when neither is present. The resolved identifier is stored on the gin
// context and echoed back as a cookie so the browser keeps it.
func SessionIDMiddleware(cookieSecure bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(HeaderSessionID)
		if sessionID == "" {
			if cookie, err := c.Cookie(CookieSessionID); err == nil {
				sessionID = cookie
			}
		}

		if sessionID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				logger.Error("failed to generate session id", slog.Any("error", err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			sessionID = id.String()

			logger.Debug("minted new browser session", slog.String("session_id", sessionID))
		}

		c.SetCookie(CookieSessionID, sessionID, cookieMaxAge, "/", "", cookieSecure, true)
		c.Set(contextKeySessionID, sessionID)

		c.Next()
	}
}

// GetSessionID returns the session identifier resolved by SessionIDMiddleware.
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID := c.GetString(contextKeySessionID)
	if sessionID == "" {
		return "", false
	}
	return sessionID, true
}
