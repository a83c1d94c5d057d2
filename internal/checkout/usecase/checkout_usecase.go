package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	"github.com/ckckckcz/pulseprotect-sub000/internal/snap"
)

// User-facing notifications for the four terminal outcomes.
const (
	msgSuccess   = "Payment successful, your subscription is active"
	msgPending   = "Payment is being processed, complete it with your payment provider"
	msgFailed    = "Payment failed, please try again"
	msgCancelled = "Payment cancelled"
)

// checkoutUseCase implements UseCase for one session's dispatcher.
type checkoutUseCase struct {
	dispatcher Dispatcher
	sessions   SessionManager
	gateway    Gateway
	tracker    *Tracker
	clock      func() time.Time
	logger     *slog.Logger
}

// NewCheckoutUseCase creates the orchestrator. The gateway and tracker are
// shared process-wide; dispatcher and sessions are scoped to one session.
func NewCheckoutUseCase(
	dispatcher Dispatcher,
	sessions SessionManager,
	gateway Gateway,
	tracker *Tracker,
	clock func() time.Time,
	logger *slog.Logger,
) UseCase {
	if clock == nil {
		clock = time.Now
	}
	return &checkoutUseCase{
		dispatcher: dispatcher,
		sessions:   sessions,
		gateway:    gateway,
		tracker:    tracker,
		clock:      clock,
		logger:     logger,
	}
}

// createIntentRequest is the best-effort intent record sent to the backend.
type createIntentRequest struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	PackageID   string `json:"packageId"`
	PackageName string `json:"packageName"`
	Period      string `json:"period"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
}

// createTokenRequest is the payment token request wire format.
type createTokenRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	CustomerDetails    customerDetails    `json:"customer_details"`
	ItemDetails        []itemDetails      `json:"item_details"`
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type itemDetails struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// createTokenResponse is the payment token response wire format.
type createTokenResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// checkStatusRequest asks the backend for the authoritative transaction state.
type checkStatusRequest struct {
	OrderID string `json:"orderId"`
}

// checkStatusResponse carries the authoritative transaction state.
type checkStatusResponse struct {
	Status string `json:"status"`
}

// Pay runs one checkout attempt. Step order is strict: the gateway must be
// confirmed ready before the payment token is requested, and the token must
// be obtained before the gateway is invoked.
func (u *checkoutUseCase) Pay(ctx context.Context, input *domain.CheckoutInput) (*domain.CheckoutSession, error) {
	// Preconditions: ready gateway and an authenticated session. A gateway
	// past its retry ceiling refuses the attempt before any backend call.
	handle, err := u.gateway.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	if !u.sessions.IsAuthenticated(ctx) {
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "an active session is required for checkout")
	}

	claims, _ := u.sessions.UserFromToken(ctx)
	if claims != nil && claims.Email != "" && !strings.EqualFold(claims.Email, input.Customer.Email) {
		// Advisory only. The backend is the final authority on identity.
		u.logger.Warn("customer email does not match session claims",
			slog.String("claims_email", claims.Email),
			slog.String("customer_email", input.Customer.Email),
		)
	}

	intent := domain.NewTransactionIntent(input, u.clock())

	// Best-effort intent record: observability, not correctness-critical.
	u.recordIntent(ctx, claims, intent)

	token, redirectURL, err := u.createPaymentToken(ctx, intent)
	if err != nil {
		return nil, err
	}

	// Readiness said Ready, but the handle may have been lost since. One
	// last-resort synchronous reload before giving up.
	if current := u.gateway.Handle(); current != nil {
		handle = current
	} else {
		handle, err = u.gateway.Reload(ctx)
		if err != nil {
			return nil, err
		}
	}

	u.tracker.Begin(intent.OrderID)

	attempt, err := handle.Pay(intent.OrderID, token, u.outcomeCallbacks(intent.OrderID))
	if err != nil {
		u.tracker.Finish(intent.OrderID, domain.StatusFailed, msgFailed)
		return nil, err
	}

	u.logger.Info("checkout attempt started",
		slog.String("order_id", attempt.OrderID()),
		slog.String("package_id", intent.PackageID),
		slog.Int64("amount", intent.Amount),
	)

	return &domain.CheckoutSession{
		OrderID:      intent.OrderID,
		PaymentToken: token,
		RedirectURL:  redirectURL,
	}, nil
}

// HandleNotification maps the vendor transaction status onto a terminal
// outcome and resolves the matching attempt.
func (u *checkoutUseCase) HandleNotification(
	ctx context.Context,
	orderID, transactionStatus string,
	payload map[string]any,
) bool {
	outcome, ok := mapTransactionStatus(transactionStatus)
	if !ok {
		u.logger.Warn("unknown transaction status in notification",
			slog.String("order_id", orderID),
			slog.String("transaction_status", transactionStatus),
		)
		return false
	}

	handle := u.gateway.Handle()
	if handle == nil {
		u.logger.Warn("notification received while gateway not ready",
			slog.String("order_id", orderID),
		)
		return false
	}

	return handle.Resolve(ctx, orderID, snap.Result{Outcome: outcome, Payload: payload})
}

// Cancel resolves an attempt as user-aborted.
func (u *checkoutUseCase) Cancel(ctx context.Context, orderID string) bool {
	handle := u.gateway.Handle()
	if handle == nil {
		return false
	}
	return handle.Cancel(ctx, orderID)
}

// Status returns the polled state of a checkout attempt.
func (u *checkoutUseCase) Status(orderID string) (*domain.CheckoutState, bool) {
	return u.tracker.Get(orderID)
}

// recordIntent sends the best-effort intent record. Failures are logged and
// swallowed; they must never block the checkout.
func (u *checkoutUseCase) recordIntent(ctx context.Context, claims *session.Claims, intent *domain.TransactionIntent) {
	request := createIntentRequest{
		Email:       intent.Customer.Email,
		PackageID:   intent.PackageID,
		PackageName: intent.PackageName,
		Period:      intent.Period,
		Amount:      intent.Amount,
		OrderID:     intent.OrderID,
	}
	if claims != nil {
		request.UserID = claims.Subject
	}

	if _, err := u.dispatcher.Post(ctx, "/subscriptions/create-intent", request, nil); err != nil {
		u.logger.Warn("failed to record transaction intent",
			slog.String("order_id", intent.OrderID),
			slog.Any("error", err),
		)
	}
}

// createPaymentToken requests the signed payment token. A missing token in a
// successful response is a hard failure.
func (u *checkoutUseCase) createPaymentToken(ctx context.Context, intent *domain.TransactionIntent) (string, string, error) {
	request := createTokenRequest{
		TransactionDetails: transactionDetails{
			OrderID:     intent.OrderID,
			GrossAmount: intent.Amount,
		},
		CustomerDetails: customerDetails{
			FirstName: intent.Customer.Name,
			Email:     intent.Customer.Email,
			Phone:     intent.Customer.Phone,
		},
		ItemDetails: []itemDetails{
			{
				ID:       intent.PackageID,
				Price:    intent.Amount,
				Quantity: 1,
				Name:     intent.PackageName,
			},
		},
	}

	result, err := u.dispatcher.Post(ctx, "/payment/create-token", request, nil)
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to create payment token")
	}

	var response createTokenResponse
	if err := result.Decode(&response); err != nil {
		return "", "", apperrors.Wrap(err, "failed to decode payment token response")
	}
	if response.Token == "" {
		return "", "", apperrors.New("backend returned no payment token")
	}

	return response.Token, response.RedirectURL, nil
}

// outcomeCallbacks builds the four terminal callbacks for an attempt. Each
// terminal path finishes the tracker state exactly once; only success
// triggers the server-side status confirmation.
func (u *checkoutUseCase) outcomeCallbacks(orderID string) snap.Callbacks {
	return snap.Callbacks{
		OnSuccess: func(ctx context.Context, payload map[string]any) {
			u.confirmStatus(ctx, orderID)
			u.tracker.Finish(orderID, domain.StatusSuccess, msgSuccess)
			u.logger.Info("checkout succeeded", slog.String("order_id", orderID))
		},
		OnPending: func(ctx context.Context, payload map[string]any) {
			u.tracker.Finish(orderID, domain.StatusPending, msgPending)
			u.logger.Info("checkout pending", slog.String("order_id", orderID))
		},
		OnError: func(ctx context.Context, payload map[string]any) {
			u.tracker.Finish(orderID, domain.StatusFailed, msgFailed)
			u.logger.Warn("checkout failed", slog.String("order_id", orderID))
		},
		OnClose: func(ctx context.Context) {
			u.tracker.Finish(orderID, domain.StatusCancelled, msgCancelled)
			u.logger.Info("checkout cancelled by user", slog.String("order_id", orderID))
		},
	}
}

// confirmStatus queries the backend for the authoritative transaction state.
// Best-effort: a failed query degrades to an optimistic success message
// rather than blocking the user.
func (u *checkoutUseCase) confirmStatus(ctx context.Context, orderID string) {
	result, err := u.dispatcher.Post(ctx, "/payment/check-status", checkStatusRequest{OrderID: orderID}, nil)
	if err != nil {
		u.logger.Warn("status confirmation failed, assuming success",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
		return
	}

	var response checkStatusResponse
	if err := result.Decode(&response); err != nil {
		u.logger.Warn("failed to decode status confirmation, assuming success",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
		return
	}

	u.logger.Info("transaction status confirmed",
		slog.String("order_id", orderID),
		slog.String("status", response.Status),
	)
}

// mapTransactionStatus translates vendor transaction statuses onto the four
// terminal outcomes.
func mapTransactionStatus(transactionStatus string) (snap.Outcome, bool) {
	switch strings.ToLower(transactionStatus) {
	case "settlement", "capture":
		return snap.OutcomeSuccess, true
	case "pending":
		return snap.OutcomePending, true
	case "deny", "expire", "failure":
		return snap.OutcomeError, true
	case "cancel":
		return snap.OutcomeClosed, true
	default:
		return 0, false
	}
}
