package usecase

import (
	"sync"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
)

// Tracker holds the in-progress flag and user-facing message for each
// checkout attempt. It is shared process-wide; the one-shot attempt
// resolution guarantees each attempt is finished exactly once.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]*domain.CheckoutState
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*domain.CheckoutState),
	}
}

// Begin marks an attempt as in progress.
func (t *Tracker) Begin(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[orderID] = &domain.CheckoutState{
		OrderID: orderID,
		Status:  domain.StatusInProgress,
		Message: "Processing payment",
	}
}

// Finish records the terminal status and message, clearing the in-progress
// flag. A Finish for an unknown order still records the state so late
// notifications are not lost.
func (t *Tracker) Finish(orderID string, status domain.Status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[orderID] = &domain.CheckoutState{
		OrderID: orderID,
		Status:  status,
		Message: message,
	}
}

// Get returns a copy of the attempt state.
func (t *Tracker) Get(orderID string) (*domain.CheckoutState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[orderID]
	if !ok {
		return nil, false
	}
	copied := *state
	return &copied, true
}
