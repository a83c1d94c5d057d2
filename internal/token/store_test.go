package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// faultyTier wraps a tier and injects failures per operation.
type faultyTier struct {
	inner    Tier
	getErr   error
	setErr   error
	pairErr  error
	clearErr error
}

func (f *faultyTier) Get(ctx context.Context, sessionID, slot string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.inner.Get(ctx, sessionID, slot)
}

func (f *faultyTier) Set(ctx context.Context, sessionID, slot string, entry Entry) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, sessionID, slot, entry)
}

func (f *faultyTier) SetPair(ctx context.Context, sessionID string, access, refresh Entry) error {
	if f.pairErr != nil {
		return f.pairErr
	}
	return f.inner.SetPair(ctx, sessionID, access, refresh)
}

func (f *faultyTier) Clear(ctx context.Context, sessionID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.inner.Clear(ctx, sessionID)
}

func newTestStore(fast, durable Tier, opts StoreOptions) *Store {
	return NewStore("session-1", fast, durable, opts, nil)
}

func TestStore_SetTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_WritesBothTiers", func(t *testing.T) {
		fast := NewMemoryTier(nil)
		durable := NewMemoryTier(nil)
		store := newTestStore(fast, durable, StoreOptions{})

		persisted := store.SetTokens(ctx, "access-token", "refresh-token")
		assert.True(t, persisted)

		for _, tier := range []Tier{fast, durable} {
			access, ok, _ := tier.Get(ctx, "session-1", SlotAccess)
			assert.True(t, ok)
			assert.Equal(t, "access-token", access)

			refresh, ok, _ := tier.Get(ctx, "session-1", SlotRefresh)
			assert.True(t, ok)
			assert.Equal(t, "refresh-token", refresh)
		}
	})

	t.Run("Success_EmptyRefreshPreservesCurrent", func(t *testing.T) {
		fast := NewMemoryTier(nil)
		durable := NewMemoryTier(nil)
		store := newTestStore(fast, durable, StoreOptions{})

		store.SetTokens(ctx, "old-access", "stable-refresh")
		store.SetTokens(ctx, "new-access", "")

		access, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "new-access", access)

		refresh, ok := store.RefreshToken(ctx)
		assert.True(t, ok)
		assert.Equal(t, "stable-refresh", refresh)
	})

	t.Run("Success_LifetimeDerivedFromTokenExpiry", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		fast := NewMemoryTier(clock)
		durable := NewMemoryTier(clock)

		// The token claims to expire in 30 seconds
		expiry := func(string) (time.Time, bool) { return now.Add(30 * time.Second), true }
		store := newTestStore(fast, durable, StoreOptions{
			DefaultLifetime: time.Hour,
			MaxLifetime:     24 * time.Hour,
			Expiry:          expiry,
			Clock:           clock,
		})

		store.SetTokens(ctx, "short-lived", "refresh-token")

		now = now.Add(29 * time.Second)
		_, ok := store.Token(ctx)
		assert.True(t, ok)

		now = now.Add(2 * time.Second)
		_, ok, _ = fast.Get(ctx, "session-1", SlotAccess)
		assert.False(t, ok, "fast tier entry should have expired with the token")
	})

	t.Run("Success_LifetimeClampedToMax", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		fast := NewMemoryTier(clock)
		durable := NewMemoryTier(clock)

		// The token claims a year-long expiry; the cache must not honor it
		expiry := func(string) (time.Time, bool) { return now.Add(365 * 24 * time.Hour), true }
		store := newTestStore(fast, durable, StoreOptions{
			DefaultLifetime: time.Hour,
			MaxLifetime:     24 * time.Hour,
			Expiry:          expiry,
			Clock:           clock,
		})

		store.SetTokens(ctx, "long-lived", "refresh-token")

		now = now.Add(25 * time.Hour)
		_, ok, _ := fast.Get(ctx, "session-1", SlotAccess)
		assert.False(t, ok, "cache lifetime must be capped at MaxLifetime")
	})

	t.Run("Success_UndecodableTokenGetsDefaultLifetime", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		fast := NewMemoryTier(clock)
		durable := NewMemoryTier(clock)

		expiry := func(string) (time.Time, bool) { return time.Time{}, false }
		store := newTestStore(fast, durable, StoreOptions{
			DefaultLifetime: 10 * time.Minute,
			MaxLifetime:     24 * time.Hour,
			Expiry:          expiry,
			Clock:           clock,
		})

		store.SetTokens(ctx, "opaque-token", "refresh-token")

		now = now.Add(9 * time.Minute)
		_, ok := store.Token(ctx)
		assert.True(t, ok)

		now = now.Add(2 * time.Minute)
		_, ok, _ = fast.Get(ctx, "session-1", SlotAccess)
		assert.False(t, ok)
	})

	t.Run("Error_DurableTierFailureReportsNotPersisted", func(t *testing.T) {
		fast := NewMemoryTier(nil)
		durable := &faultyTier{inner: NewMemoryTier(nil), pairErr: errors.New("db down")}
		store := newTestStore(fast, durable, StoreOptions{})

		persisted := store.SetTokens(ctx, "access-token", "refresh-token")
		assert.False(t, persisted)

		// The fast tier still holds the pair
		access, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "access-token", access)
	})
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReadRepairFromDurable", func(t *testing.T) {
		fast := NewMemoryTier(nil)
		durable := NewMemoryTier(nil)
		store := newTestStore(fast, durable, StoreOptions{})

		// Durable has the pair, fast is cold (fresh process)
		_ = durable.SetPair(ctx, "session-1",
			Entry{Value: "access-token", ExpiresAt: time.Now().Add(time.Hour)},
			Entry{Value: "refresh-token", ExpiresAt: time.Now().Add(time.Hour)},
		)

		access, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "access-token", access)

		// The fast tier was repaired
		repaired, ok, _ := fast.Get(ctx, "session-1", SlotAccess)
		assert.True(t, ok)
		assert.Equal(t, "access-token", repaired)
	})

	t.Run("Success_FastTierErrorFallsThroughToDurable", func(t *testing.T) {
		broken := &faultyTier{inner: NewMemoryTier(nil), getErr: errors.New("cache broken")}
		durable := NewMemoryTier(nil)
		store := newTestStore(broken, durable, StoreOptions{})

		_ = durable.Set(ctx, "session-1", SlotAccess, Entry{
			Value:     "access-token",
			ExpiresAt: time.Now().Add(time.Hour),
		})

		access, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "access-token", access)
	})

	t.Run("Error_BothTiersEmpty", func(t *testing.T) {
		store := newTestStore(NewMemoryTier(nil), NewMemoryTier(nil), StoreOptions{})

		_, ok := store.Token(ctx)
		assert.False(t, ok)
		_, ok = store.RefreshToken(ctx)
		assert.False(t, ok)
	})

	t.Run("Error_DurableTierErrorIsAMiss", func(t *testing.T) {
		durable := &faultyTier{inner: NewMemoryTier(nil), getErr: errors.New("db down")}
		store := newTestStore(NewMemoryTier(nil), durable, StoreOptions{})

		_, ok := store.Token(ctx)
		assert.False(t, ok)
	})
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RemovesPairFromBothTiers", func(t *testing.T) {
		fast := NewMemoryTier(nil)
		durable := NewMemoryTier(nil)
		store := newTestStore(fast, durable, StoreOptions{})

		store.SetTokens(ctx, "access-token", "refresh-token")
		store.Clear(ctx)

		_, ok := store.Token(ctx)
		assert.False(t, ok)
		_, ok = store.RefreshToken(ctx)
		assert.False(t, ok)

		_, ok, _ = durable.Get(ctx, "session-1", SlotAccess)
		assert.False(t, ok)
	})

	t.Run("Success_ClearSurvivesTierErrors", func(t *testing.T) {
		fast := &faultyTier{inner: NewMemoryTier(nil), clearErr: errors.New("cache broken")}
		durable := NewMemoryTier(nil)
		store := newTestStore(fast, durable, StoreOptions{})

		assert.NotPanics(t, func() { store.Clear(ctx) })
	})
}
