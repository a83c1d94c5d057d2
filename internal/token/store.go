package token

import (
	"context"
	"log/slog"
	"time"
)

// ExpiryFunc extracts the expiry deadline embedded in a signed token.
// It reports false when the token cannot be decoded or carries no expiry.
type ExpiryFunc func(token string) (time.Time, bool)

// StoreOptions configures lifetime handling for a Store.
type StoreOptions struct {
	// DefaultLifetime is used when the access token cannot be decoded.
	DefaultLifetime time.Duration
	// MaxLifetime caps the lifetime derived from a token's own expiry.
	MaxLifetime time.Duration
	// Expiry extracts the expiry from an access token. Optional.
	Expiry ExpiryFunc
	// Clock is the time source. Defaults to time.Now.
	Clock func() time.Time
}

// Store persists one session's access/refresh token pair across two tiers.
// Writes go through the fast tier to the durable tier; reads prefer the fast
// tier and repair it from the durable tier on a miss.
//
// The store is a dumb persistence surface: deciding when tokens are replaced
// or cleared belongs to the session manager.
type Store struct {
	sessionID       string
	fast            Tier
	durable         Tier
	defaultLifetime time.Duration
	maxLifetime     time.Duration
	expiry          ExpiryFunc
	clock           func() time.Time
	logger          *slog.Logger
}

// NewStore creates a token store scoped to one browser session.
func NewStore(sessionID string, fast, durable Tier, opts StoreOptions, logger *slog.Logger) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DefaultLifetime <= 0 {
		opts.DefaultLifetime = time.Hour
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = 24 * time.Hour
	}
	return &Store{
		sessionID:       sessionID,
		fast:            fast,
		durable:         durable,
		defaultLifetime: opts.DefaultLifetime,
		maxLifetime:     opts.MaxLifetime,
		expiry:          opts.Expiry,
		clock:           opts.Clock,
		logger:          logger,
	}
}

// SessionID returns the session this store is scoped to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// SetTokens persists the token pair in both tiers. The cache lifetime is
// derived from the access token's own expiry, bounded to [0, MaxLifetime],
// falling back to DefaultLifetime when the token cannot be decoded.
//
// An empty refresh token preserves the currently stored refresh token, so a
// refresh exchange that does not rotate the refresh credential never wipes it.
//
// SetTokens never fails loudly: persistence errors degrade to "not persisted"
// and are reported through the returned bool.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) bool {
	now := s.clock()
	lifetime := s.accessLifetime(access, now)

	accessEntry := Entry{Value: access, ExpiresAt: now.Add(lifetime)}

	if refresh == "" {
		// Refresh was not rotated, keep whatever is currently stored.
		if current, ok := s.RefreshToken(ctx); ok {
			refresh = current
		}
	}
	refreshEntry := Entry{Value: refresh, ExpiresAt: now.Add(s.maxLifetime)}

	persisted := true
	if err := s.fast.SetPair(ctx, s.sessionID, accessEntry, refreshEntry); err != nil {
		s.warn("failed to write tokens to fast tier", err)
		persisted = false
	}
	if err := s.durable.SetPair(ctx, s.sessionID, accessEntry, refreshEntry); err != nil {
		s.warn("failed to write tokens to durable tier", err)
		persisted = false
	}
	return persisted
}

// Token returns the access token, reading the fast tier first and repairing
// it from the durable tier on a miss.
func (s *Store) Token(ctx context.Context) (string, bool) {
	return s.get(ctx, SlotAccess)
}

// RefreshToken returns the refresh token, reading the fast tier first and
// repairing it from the durable tier on a miss.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.get(ctx, SlotRefresh)
}

// Clear removes the token pair from both tiers unconditionally. Idempotent.
func (s *Store) Clear(ctx context.Context) {
	if err := s.fast.Clear(ctx, s.sessionID); err != nil {
		s.warn("failed to clear fast tier", err)
	}
	if err := s.durable.Clear(ctx, s.sessionID); err != nil {
		s.warn("failed to clear durable tier", err)
	}
}

// get reads a slot with read-repair: on a fast-tier miss the durable value is
// copied back into the fast tier before being returned.
func (s *Store) get(ctx context.Context, slot string) (string, bool) {
	value, ok, err := s.fast.Get(ctx, s.sessionID, slot)
	if err != nil {
		s.warn("fast tier read failed", err)
	}
	if ok {
		return value, true
	}

	value, ok, err = s.durable.Get(ctx, s.sessionID, slot)
	if err != nil {
		s.warn("durable tier read failed", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	// Read-repair: repopulate the fast tier with a freshly computed lifetime.
	now := s.clock()
	lifetime := s.defaultLifetime
	if slot == SlotAccess {
		lifetime = s.accessLifetime(value, now)
	} else {
		lifetime = s.maxLifetime
	}
	if err := s.fast.Set(ctx, s.sessionID, slot, Entry{Value: value, ExpiresAt: now.Add(lifetime)}); err != nil {
		s.warn("read-repair write failed", err)
	}

	return value, true
}

// accessLifetime derives the cache lifetime from the token's embedded expiry,
// clamped to a non-negative duration no longer than MaxLifetime.
func (s *Store) accessLifetime(access string, now time.Time) time.Duration {
	if s.expiry == nil {
		return s.defaultLifetime
	}
	expiresAt, ok := s.expiry(access)
	if !ok {
		return s.defaultLifetime
	}

	lifetime := expiresAt.Sub(now)
	if lifetime < 0 {
		lifetime = 0
	}
	if lifetime > s.maxLifetime {
		lifetime = s.maxLifetime
	}
	return lifetime
}

func (s *Store) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
