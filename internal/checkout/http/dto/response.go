package dto

import (
	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
)

// CheckoutResponse is returned once a payment token has been handed to the
// gateway. The token lets the client open the payment widget; the redirect
// URL is the hosted fallback page.
type CheckoutResponse struct {
	OrderID      string `json:"order_id"`
	PaymentToken string `json:"payment_token"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

// StatusResponse is the polled state of a checkout attempt.
type StatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ResolvedResponse reports whether a notification or close request matched a
// live checkout attempt.
type ResolvedResponse struct {
	OrderID  string `json:"order_id"`
	Resolved bool   `json:"resolved"`
}

// MapCheckoutSessionToResponse converts a domain checkout session to an API response.
func MapCheckoutSessionToResponse(session *domain.CheckoutSession) CheckoutResponse {
	return CheckoutResponse{
		OrderID:      session.OrderID,
		PaymentToken: session.PaymentToken,
		RedirectURL:  session.RedirectURL,
	}
}

// MapCheckoutStateToResponse converts a domain checkout state to an API response.
func MapCheckoutStateToResponse(state *domain.CheckoutState) StatusResponse {
	return StatusResponse{
		OrderID: state.OrderID,
		Status:  string(state.Status),
		Message: state.Message,
	}
}
