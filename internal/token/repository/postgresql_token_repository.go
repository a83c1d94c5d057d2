// Package repository provides the durable SQL-backed storage tier for token slots.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ckckckcz/pulseprotect-sub000/internal/database"
	apperrors "github.com/ckckckcz/pulseprotect-sub000/internal/errors"
	"github.com/ckckckcz/pulseprotect-sub000/internal/token"
)

// PostgreSQLTokenRepository implements the durable token tier for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// NewPostgreSQLTokenRepository creates a new PostgreSQLTokenRepository.
func NewPostgreSQLTokenRepository(db *sql.DB, txManager database.TxManager) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{
		db:        db,
		txManager: txManager,
	}
}

// Get returns the slot value, treating expired entries as misses.
func (r *PostgreSQLTokenRepository) Get(ctx context.Context, sessionID, slot string) (string, bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT value FROM token_slots
			  WHERE session_id = $1 AND slot = $2 AND expires_at > NOW()`

	var value string
	err := querier.QueryRowContext(ctx, query, sessionID, slot).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, apperrors.Wrap(err, "failed to get token slot")
	}

	return value, true, nil
}

// Set upserts a single slot entry.
func (r *PostgreSQLTokenRepository) Set(ctx context.Context, sessionID, slot string, entry token.Entry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO token_slots (session_id, slot, value, expires_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW())
			  ON CONFLICT (session_id, slot)
			  DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	if _, err := querier.ExecContext(ctx, query, sessionID, slot, entry.Value, entry.ExpiresAt); err != nil {
		return apperrors.Wrap(err, "failed to set token slot")
	}
	return nil
}

// SetPair upserts both slots inside one transaction so a reader never
// observes an access token paired with a stale refresh token.
func (r *PostgreSQLTokenRepository) SetPair(ctx context.Context, sessionID string, access, refresh token.Entry) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.Set(ctx, sessionID, token.SlotAccess, access); err != nil {
			return err
		}
		return r.Set(ctx, sessionID, token.SlotRefresh, refresh)
	})
}

// Clear removes both slots for the session. Idempotent.
func (r *PostgreSQLTokenRepository) Clear(ctx context.Context, sessionID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM token_slots WHERE session_id = $1`

	if _, err := querier.ExecContext(ctx, query, sessionID); err != nil {
		return apperrors.Wrap(err, "failed to clear token slots")
	}
	return nil
}

// DeleteExpired removes entries whose expiry has elapsed. Used by cleanup.
func (r *PostgreSQLTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM token_slots WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired token slots")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted token slots")
	}
	return count, nil
}
