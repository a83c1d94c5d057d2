package usecase

import (
	"context"
	"time"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
	"github.com/ckckckcz/pulseprotect-sub000/internal/metrics"
)

// useCaseWithMetrics decorates UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Pay records metrics for checkout attempts.
func (u *useCaseWithMetrics) Pay(
	ctx context.Context,
	input *domain.CheckoutInput,
) (*domain.CheckoutSession, error) {
	start := time.Now()
	checkoutSession, err := u.next.Pay(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "checkout", "pay", status)
	u.metrics.RecordDuration(ctx, "checkout", "pay", time.Since(start), status)

	return checkoutSession, err
}

// HandleNotification records metrics for outcome notifications.
func (u *useCaseWithMetrics) HandleNotification(
	ctx context.Context,
	orderID, transactionStatus string,
	payload map[string]any,
) bool {
	start := time.Now()
	resolved := u.next.HandleNotification(ctx, orderID, transactionStatus, payload)

	status := "success"
	if !resolved {
		status = "ignored"
	}

	u.metrics.RecordOperation(ctx, "checkout", "notification", status)
	u.metrics.RecordDuration(ctx, "checkout", "notification", time.Since(start), status)

	return resolved
}

// Cancel records metrics for user-aborted attempts.
func (u *useCaseWithMetrics) Cancel(ctx context.Context, orderID string) bool {
	start := time.Now()
	resolved := u.next.Cancel(ctx, orderID)

	status := "success"
	if !resolved {
		status = "ignored"
	}

	u.metrics.RecordOperation(ctx, "checkout", "cancel", status)
	u.metrics.RecordDuration(ctx, "checkout", "cancel", time.Since(start), status)

	return resolved
}

// Status is a pure read and is passed through without instrumentation.
func (u *useCaseWithMetrics) Status(orderID string) (*domain.CheckoutState, bool) {
	return u.next.Status(orderID)
}
