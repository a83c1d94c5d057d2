// Package token implements the dual-tier credential store: a fast in-process
// cache tier backed by a slower durable tier, with write-through persistence
// and read-repair on cache misses.
package token

import (
	"context"
	"time"
)

// Slot names for the two persisted credentials.
const (
	SlotAccess  = "access_token"
	SlotRefresh = "refresh_token"
)

// Entry is a credential value tagged with its computed expiry.
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// Tier is a key-value backend holding credential slots per session.
// Both storage tiers (in-memory and SQL) implement this interface so the
// store can treat them interchangeably.
type Tier interface {
	// Get returns the value stored in the slot, or false if the slot is
	// empty or its entry has expired.
	Get(ctx context.Context, sessionID, slot string) (string, bool, error)

	// Set stores a single slot entry. Used for read-repair.
	Set(ctx context.Context, sessionID, slot string, entry Entry) error

	// SetPair stores both credential slots as one atomic write. Partial
	// writes (access updated, refresh stale) must not be observable.
	SetPair(ctx context.Context, sessionID string, access, refresh Entry) error

	// Clear removes both slots unconditionally. Must be idempotent.
	Clear(ctx context.Context, sessionID string) error
}
