package snap

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
)

// Outcome is the terminal result of one checkout attempt as reported by the
// gateway. Exactly one outcome fires per attempt.
type Outcome int

const (
	// OutcomeSuccess means the payment settled.
	OutcomeSuccess Outcome = iota
	// OutcomePending means the payment is awaiting settlement.
	OutcomePending
	// OutcomeError means the payment failed.
	OutcomeError
	// OutcomeClosed means the user aborted the checkout. Carries no payload.
	OutcomeClosed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePending:
		return "pending"
	case OutcomeError:
		return "error"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result pairs an outcome with the vendor's result payload.
type Result struct {
	Outcome Outcome
	Payload map[string]any
}

// Callbacks map 1:1 to the four terminal outcomes. Each attempt fires
// exactly one of them.
type Callbacks struct {
	OnSuccess func(ctx context.Context, payload map[string]any)
	OnPending func(ctx context.Context, payload map[string]any)
	OnError   func(ctx context.Context, payload map[string]any)
	OnClose   func(ctx context.Context)
}

// Attempt is one in-flight checkout attempt. Resolution is one-shot: the
// first Resolve wins and later calls are no-ops, so a second gateway
// callback firing after resolution cannot act twice.
type Attempt struct {
	orderID      string
	paymentToken string
	callbacks    Callbacks

	once     sync.Once
	mu       sync.Mutex
	resolved bool
}

// OrderID returns the order this attempt belongs to.
func (a *Attempt) OrderID() string {
	return a.orderID
}

// PaymentToken returns the token handed to the gateway for this attempt.
func (a *Attempt) PaymentToken() string {
	return a.paymentToken
}

// Resolved reports whether a terminal outcome has already fired.
func (a *Attempt) Resolved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resolved
}

// Resolve fires the callback matching the result. Returns true only for the
// call that actually resolved the attempt.
func (a *Attempt) Resolve(ctx context.Context, result Result) bool {
	fired := false
	a.once.Do(func() {
		a.mu.Lock()
		a.resolved = true
		a.mu.Unlock()

		switch result.Outcome {
		case OutcomeSuccess:
			if a.callbacks.OnSuccess != nil {
				a.callbacks.OnSuccess(ctx, result.Payload)
			}
		case OutcomePending:
			if a.callbacks.OnPending != nil {
				a.callbacks.OnPending(ctx, result.Payload)
			}
		case OutcomeError:
			if a.callbacks.OnError != nil {
				a.callbacks.OnError(ctx, result.Payload)
			}
		case OutcomeClosed:
			if a.callbacks.OnClose != nil {
				a.callbacks.OnClose(ctx)
			}
		}
		fired = true
	})
	return fired
}

// Handle is the loaded gateway entry point. It registers pay attempts and
// resolves them when the vendor's outcome notification arrives.
type Handle struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
	logger   *slog.Logger
}

// NewHandle creates an empty attempt registry.
func NewHandle(logger *slog.Logger) *Handle {
	return &Handle{
		attempts: make(map[string]*Attempt),
		logger:   logger,
	}
}

// Pay hands a payment token to the gateway, registering the outcome
// callbacks for the order. Called exactly once per checkout attempt.
func (h *Handle) Pay(orderID, paymentToken string, callbacks Callbacks) (*Attempt, error) {
	if paymentToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "payment token is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.attempts[orderID]; exists {
		return nil, apperrors.Wrap(apperrors.ErrConflict, "checkout attempt already in flight for order "+orderID)
	}

	attempt := &Attempt{
		orderID:      orderID,
		paymentToken: paymentToken,
		callbacks:    callbacks,
	}
	h.attempts[orderID] = attempt

	if h.logger != nil {
		h.logger.Info("checkout attempt registered", slog.String("order_id", orderID))
	}
	return attempt, nil
}

// Resolve fires the registered attempt for the order and removes it from the
// registry. Returns false when no attempt is registered or it was already
// resolved.
func (h *Handle) Resolve(ctx context.Context, orderID string, result Result) bool {
	h.mu.Lock()
	attempt, ok := h.attempts[orderID]
	if ok {
		delete(h.attempts, orderID)
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	return attempt.Resolve(ctx, result)
}

// Cancel resolves an attempt as user-aborted.
func (h *Handle) Cancel(ctx context.Context, orderID string) bool {
	return h.Resolve(ctx, orderID, Result{Outcome: OutcomeClosed})
}
