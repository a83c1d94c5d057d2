package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ckckckcz/pulseprotect-sub000/internal/app"
	"github.com/ckckckcz/pulseprotect-sub000/internal/config"
)

// expiredDeleter is the cleanup surface of the durable token tier.
type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunCleanExpiredTokens deletes token slots whose expiry has elapsed from the
// durable tier. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(ctx context.Context, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("cleaning expired token slots")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get durable tier from container
	durableTier, err := container.DurableTier()
	if err != nil {
		return fmt.Errorf("failed to initialize durable tier: %w", err)
	}

	deleter, ok := durableTier.(expiredDeleter)
	if !ok {
		return fmt.Errorf("durable tier does not support expired cleanup")
	}

	count, err := deleter.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired token slots: %w", err)
	}

	// Output result based on format
	if format == "json" {
		outputCleanExpiredJSON(count)
	} else {
		outputCleanExpiredText(count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}

// outputCleanExpiredText outputs the result in human-readable text format.
func outputCleanExpiredText(count int64) {
	fmt.Printf("Successfully deleted %d expired token slot(s)\n", count)
}

// outputCleanExpiredJSON outputs the result in JSON format for machine consumption.
func outputCleanExpiredJSON(count int64) {
	result := map[string]interface{}{
		"count": count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Println(string(jsonBytes))
}
