package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ckckckcz/pulseprotect-sub000/internal/token"
)

// TokenPair is the result of a refresh exchange. RefreshToken is empty when
// the backend did not rotate the refresh credential.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Refresher performs the refresh-token exchange against the backend.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// Manager owns the session's authentication state. It is the only component
// allowed to replace or clear the token pair; everything else reads through it.
//
// State machine: Unauthenticated -> Authenticated on token set;
// Authenticated -> Unauthenticated on expiry, explicit clear or failed refresh.
type Manager struct {
	store     *token.Store
	refresher Refresher
	clock     func() time.Time
	logger    *slog.Logger
}

// NewManager creates a session manager over the given token store.
// A nil clock defaults to time.Now.
func NewManager(store *token.Store, refresher Refresher, clock func() time.Time, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		store:     store,
		refresher: refresher,
		clock:     clock,
		logger:    logger,
	}
}

// Store exposes the underlying token store for login/logout handlers.
func (m *Manager) Store() *token.Store {
	return m.store
}

// IsAuthenticated reports whether a token exists, decodes successfully and
// has a present, future expiry. A missing exp claim fails closed.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	accessToken, ok := m.store.Token(ctx)
	if !ok {
		return false
	}

	claims, ok := DecodeToken(accessToken)
	if !ok || !claims.HasExpiry() {
		return false
	}

	return m.clock().Before(claims.ExpiresAt)
}

// UserFromToken returns the decoded claims of the current access token.
// Pure read, no side effects.
func (m *Manager) UserFromToken(ctx context.Context) (*Claims, bool) {
	accessToken, ok := m.store.Token(ctx)
	if !ok {
		return nil, false
	}
	return DecodeToken(accessToken)
}

// RefreshAccessToken exchanges the refresh token for a new access token.
//
// Without a refresh token it returns absent immediately. The backend is
// called exactly once; a failed exchange clears both tokens (the session is
// considered lost, there is no retry loop here) and returns absent. On
// success the new pair is persisted and the new access token returned.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, bool) {
	refreshToken, ok := m.store.RefreshToken(ctx)
	if !ok || refreshToken == "" {
		return "", false
	}

	pair, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil || pair == nil || pair.AccessToken == "" {
		if err != nil && m.logger != nil {
			m.logger.Warn("refresh exchange failed", slog.Any("error", err))
		}
		m.store.Clear(ctx)
		return "", false
	}

	m.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken)
	return pair.AccessToken, true
}

// AuthHeader returns the bearer credential header for outbound requests, or
// an empty map when the session is unauthenticated.
func (m *Manager) AuthHeader(ctx context.Context) map[string]string {
	if !m.IsAuthenticated(ctx) {
		return map[string]string{}
	}

	accessToken, ok := m.store.Token(ctx)
	if !ok {
		return map[string]string{}
	}

	return map[string]string{"Authorization": "Bearer " + accessToken}
}

// Clear drops the token pair, moving the session to Unauthenticated.
func (m *Manager) Clear(ctx context.Context) {
	m.store.Clear(ctx)
}
