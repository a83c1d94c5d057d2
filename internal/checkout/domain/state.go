package domain

// Status is the user-visible lifecycle of a checkout attempt.
type Status string

const (
	// StatusInProgress means the attempt is awaiting a terminal outcome.
	StatusInProgress Status = "in_progress"
	// StatusSuccess means the payment settled.
	StatusSuccess Status = "success"
	// StatusPending means the payment awaits settlement.
	StatusPending Status = "pending"
	// StatusFailed means the payment failed.
	StatusFailed Status = "failed"
	// StatusCancelled means the user aborted the checkout.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a terminal outcome.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// CheckoutState is the polled state of one checkout attempt.
type CheckoutState struct {
	OrderID string
	Status  Status
	// Message is the user-facing notification for the current status.
	Message string
}
