// Package domain defines the checkout value objects: transaction intents,
// checkout sessions and their terminal states.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Customer identifies the paying user on a transaction intent.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// CheckoutInput is the caller-provided description of a checkout attempt.
type CheckoutInput struct {
	PackageID   string
	PackageName string
	Period      string
	Amount      int64
	Customer    Customer
}

// TransactionIntent describes one checkout attempt. Created fresh for every
// attempt and never reused; the order ID is unique per attempt.
type TransactionIntent struct {
	OrderID     string
	PackageID   string
	PackageName string
	Period      string
	Amount      int64
	Customer    Customer
	CreatedAt   time.Time
}

// NewTransactionIntent builds an intent with a freshly generated order ID.
func NewTransactionIntent(input *CheckoutInput, now time.Time) *TransactionIntent {
	return &TransactionIntent{
		OrderID:     NewOrderID(now),
		PackageID:   input.PackageID,
		PackageName: input.PackageName,
		Period:      input.Period,
		Amount:      input.Amount,
		Customer:    input.Customer,
		CreatedAt:   now,
	}
}

// NewOrderID generates a collision-resistant order ID from a millisecond
// timestamp and a random suffix. Two attempts never share an order ID.
func NewOrderID(now time.Time) string {
	suffix := uuid.Must(uuid.NewV7()).String()
	return fmt.Sprintf("PP-%d-%s", now.UnixMilli(), suffix[len(suffix)-12:])
}

// CheckoutSession is what the orchestrator returns to the caller after a
// payment token has been handed to the gateway.
type CheckoutSession struct {
	OrderID      string
	PaymentToken string
	RedirectURL  string
}
