package app

import (
	"context"
	"log/slog"
	"net/http"

	checkoutUsecase "github.com/ckckckcz/pulseprotect-sub000/internal/checkout/usecase"
	"github.com/ckckckcz/pulseprotect-sub000/internal/config"
	"github.com/ckckckcz/pulseprotect-sub000/internal/dispatch"
	"github.com/ckckckcz/pulseprotect-sub000/internal/metrics"
	"github.com/ckckckcz/pulseprotect-sub000/internal/session"
	"github.com/ckckckcz/pulseprotect-sub000/internal/snap"
	"github.com/ckckckcz/pulseprotect-sub000/internal/token"
)

// SessionScope builds per-session components from shared infrastructure. The
// token store, session manager and dispatcher are cheap to construct, so a
// fresh set is assembled for every request; all state lives in the shared
// tiers behind them.
type SessionScope struct {
	cfg             *config.Config
	logger          *slog.Logger
	fast            token.Tier
	durable         token.Tier
	refresher       session.Refresher
	backendClient   *http.Client
	gateway         *snap.Loader
	tracker         *checkoutUsecase.Tracker
	businessMetrics metrics.BusinessMetrics
}

// SessionFor builds the session manager for one browser session.
func (s *SessionScope) SessionFor(sessionID string) *session.Manager {
	store := token.NewStore(
		sessionID,
		s.fast,
		s.durable,
		token.StoreOptions{
			DefaultLifetime: s.cfg.TokenDefaultLifetime,
			MaxLifetime:     s.cfg.TokenMaxLifetime,
			Expiry:          session.TokenExpiry,
		},
		s.logger,
	)

	return session.NewManager(store, s.refresher, nil, s.logger)
}

// DispatcherFor builds the authenticated dispatcher for one browser session.
func (s *SessionScope) DispatcherFor(sessionID string) *dispatch.Client {
	return s.dispatcherFor(sessionID, s.SessionFor(sessionID))
}

// CheckoutFor builds the checkout use case for one browser session. An empty
// session ID yields an unauthenticated instance for webhook handling.
func (s *SessionScope) CheckoutFor(sessionID string) checkoutUsecase.UseCase {
	manager := s.SessionFor(sessionID)
	dispatcher := s.dispatcherFor(sessionID, manager)

	useCase := checkoutUsecase.NewCheckoutUseCase(
		dispatcher,
		manager,
		s.gateway,
		s.tracker,
		nil,
		s.logger,
	)

	if s.businessMetrics != nil {
		useCase = checkoutUsecase.NewUseCaseWithMetrics(useCase, s.businessMetrics)
	}

	return useCase
}

func (s *SessionScope) dispatcherFor(sessionID string, manager *session.Manager) *dispatch.Client {
	onAuthFailure := func(ctx context.Context) {
		s.logger.Warn("session requires re-authentication",
			slog.String("session_id", sessionID),
		)
	}

	return dispatch.NewClient(
		s.cfg.BackendBaseURL,
		s.backendClient,
		manager,
		onAuthFailure,
		s.logger,
	)
}
