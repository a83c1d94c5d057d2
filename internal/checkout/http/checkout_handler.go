// Package http provides HTTP handlers for checkout attempts: starting a
// payment, receiving gateway outcome notifications, closing an attempt and
// polling its state.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/http/dto"
	checkoutUseCase "github.com/ckckckcz/pulseprotect-sub000/internal/checkout/usecase"
	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
	"github.com/ckckckcz/pulseprotect-sub000/internal/httputil"
	sessionHTTP "github.com/ckckckcz/pulseprotect-sub000/internal/session/http"
	customValidation "github.com/ckckckcz/pulseprotect-sub000/internal/validation"
)

// UseCaseFactory builds a checkout use case bound to one browser session. An
// empty session ID yields an unauthenticated instance, used for the webhook
// path where only the shared gateway and tracker are touched.
type UseCaseFactory interface {
	CheckoutFor(sessionID string) checkoutUseCase.UseCase
}

// CheckoutHandler handles HTTP requests for checkout attempts.
type CheckoutHandler struct {
	useCases UseCaseFactory
	loginURL string
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler with required dependencies.
func NewCheckoutHandler(useCases UseCaseFactory, loginURL string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		useCases: useCases,
		loginURL: loginURL,
		logger:   logger,
	}
}

// PayHandler starts a checkout attempt for the current browser session.
// POST /v1/checkout - requires an authenticated session and a ready gateway.
// Returns 201 Created with the payment token and order ID.
func (h *CheckoutHandler) PayHandler(c *gin.Context) {
	sessionID, ok := sessionHTTP.GetSessionID(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.New("no session id resolved"), h.loginURL, h.logger)
		return
	}

	var req dto.CheckoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	useCase := h.useCases.CheckoutFor(sessionID)

	checkoutSession, err := useCase.Pay(c.Request.Context(), dto.MapCheckoutRequestToInput(&req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.loginURL, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCheckoutSessionToResponse(checkoutSession))
}

// NotificationHandler receives the payment gateway webhook.
// POST /v1/checkout/notification - unauthenticated; the gateway retries on
// non-2xx, so an unmatched order still answers 200 with resolved=false.
func (h *CheckoutHandler) NotificationHandler(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	req := dto.NotificationRequest{
		OrderID:           stringField(payload, "order_id"),
		TransactionStatus: stringField(payload, "transaction_status"),
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	useCase := h.useCases.CheckoutFor("")
	resolved := useCase.HandleNotification(c.Request.Context(), req.OrderID, req.TransactionStatus, payload)

	c.JSON(http.StatusOK, dto.ResolvedResponse{OrderID: req.OrderID, Resolved: resolved})
}

// CloseHandler resolves a checkout attempt as aborted by the user.
// POST /v1/checkout/:order_id/close - returns 200 OK, idempotent.
func (h *CheckoutHandler) CloseHandler(c *gin.Context) {
	orderID := c.Param("order_id")

	useCase := h.useCases.CheckoutFor("")
	resolved := useCase.Cancel(c.Request.Context(), orderID)

	c.JSON(http.StatusOK, dto.ResolvedResponse{OrderID: orderID, Resolved: resolved})
}

// StatusHandler returns the polled state of a checkout attempt.
// GET /v1/checkout/:order_id - returns 200 OK or 404 for unknown orders.
func (h *CheckoutHandler) StatusHandler(c *gin.Context) {
	orderID := c.Param("order_id")

	useCase := h.useCases.CheckoutFor("")
	state, ok := useCase.Status(orderID)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrNotFound, "unknown order"), h.loginURL, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCheckoutStateToResponse(state))
}

// stringField extracts a string value from a decoded JSON object.
func stringField(payload map[string]any, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}
