package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
	"github.com/ckckckcz/pulseprotect-sub000/internal/httputil"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session/http/dto"
	customValidation "github.com/ckckckcz/pulseprotect-sub000/internal/validation"
)

// ManagerFactory builds a session manager bound to one browser session.
type ManagerFactory interface {
	SessionFor(sessionID string) *session.Manager
}

// SessionHandler handles HTTP requests for token handover, session state and
// sign-out.
type SessionHandler struct {
	managers ManagerFactory
	loginURL string
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler with required dependencies.
func NewSessionHandler(managers ManagerFactory, loginURL string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		managers: managers,
		loginURL: loginURL,
		logger:   logger,
	}
}

// StoreHandler persists a token pair for the current browser session.
// POST /v1/session - called after a login or an out-of-band token refresh.
// Returns 200 OK with the resulting authentication state.
func (h *SessionHandler) StoreHandler(c *gin.Context) {
	sessionID, ok := GetSessionID(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.New("no session id resolved"), h.loginURL, h.logger)
		return
	}

	var req dto.StoreTokensRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	manager := h.managers.SessionFor(sessionID)
	persisted := manager.Store().SetTokens(c.Request.Context(), req.AccessToken, req.RefreshToken)

	response := dto.StoreTokensResponse{
		SessionID:     sessionID,
		Persisted:     persisted,
		Authenticated: manager.IsAuthenticated(c.Request.Context()),
	}
	c.JSON(http.StatusOK, response)
}

// GetHandler reports the authentication state of the current browser session.
// GET /v1/session - returns 200 OK with the decoded identity claims when the
// session holds a live access token.
func (h *SessionHandler) GetHandler(c *gin.Context) {
	sessionID, ok := GetSessionID(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.New("no session id resolved"), h.loginURL, h.logger)
		return
	}

	manager := h.managers.SessionFor(sessionID)

	response := dto.SessionResponse{
		SessionID:     sessionID,
		Authenticated: manager.IsAuthenticated(c.Request.Context()),
	}
	if claims, ok := manager.UserFromToken(c.Request.Context()); ok {
		response.User = dto.MapClaimsToUserResponse(claims)
	}

	c.JSON(http.StatusOK, response)
}

// DeleteHandler discards the tokens of the current browser session.
// DELETE /v1/session - returns 204 No Content, idempotent.
func (h *SessionHandler) DeleteHandler(c *gin.Context) {
	sessionID, ok := GetSessionID(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.New("no session id resolved"), h.loginURL, h.logger)
		return
	}

	manager := h.managers.SessionFor(sessionID)
	manager.Clear(c.Request.Context())

	c.Status(http.StatusNoContent)
}
