// Package usecase implements the payment session orchestration: precondition
// checks, transaction intent recording, payment token issuance and the
// terminal outcome handling for checkout attempts.
package usecase

import (
	"context"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
	"github.com/ckckckcz/pulseprotect-sub000/internal/dispatch"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	"github.com/ckckckcz/pulseprotect-sub000/internal/snap"
)

// Dispatcher is the slice of the authenticated dispatcher the orchestrator
// uses for backend calls.
type Dispatcher interface {
	Post(ctx context.Context, path string, body any, opts *dispatch.Options) (*dispatch.Result, error)
}

// SessionManager is the slice of the session manager the orchestrator needs
// for precondition checks.
type SessionManager interface {
	IsAuthenticated(ctx context.Context) bool
	UserFromToken(ctx context.Context) (*session.Claims, bool)
}

// Gateway is the checkout gateway surface: readiness, the loaded entry point
// and the last-resort reload.
type Gateway interface {
	State() snap.State
	Ensure(ctx context.Context) (*snap.Handle, error)
	Handle() *snap.Handle
	Reload(ctx context.Context) (*snap.Handle, error)
}

// UseCase orchestrates checkout attempts for one session.
type UseCase interface {
	// Pay runs one checkout attempt up to the point where the payment token
	// has been handed to the gateway and the outcome callbacks registered.
	Pay(ctx context.Context, input *domain.CheckoutInput) (*domain.CheckoutSession, error)

	// HandleNotification maps a vendor transaction status onto a terminal
	// outcome and resolves the matching attempt. Reports whether an attempt
	// was resolved.
	HandleNotification(ctx context.Context, orderID, transactionStatus string, payload map[string]any) bool

	// Cancel resolves an attempt as user-aborted. Reports whether an
	// attempt was resolved.
	Cancel(ctx context.Context, orderID string) bool

	// Status returns the polled state of a checkout attempt.
	Status(orderID string) (*domain.CheckoutState, bool)
}
