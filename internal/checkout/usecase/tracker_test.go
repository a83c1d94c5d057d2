package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckckckcz/pulseprotect-sub000/internal/checkout/domain"
)

func TestTracker(t *testing.T) {
	t.Run("Success_BeginMarksInProgress", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Begin("order-1")

		state, ok := tracker.Get("order-1")
		require.True(t, ok)
		assert.Equal(t, "order-1", state.OrderID)
		assert.Equal(t, domain.StatusInProgress, state.Status)
		assert.False(t, state.Status.Terminal())
	})

	t.Run("Success_FinishRecordsTerminalState", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Begin("order-1")
		tracker.Finish("order-1", domain.StatusSuccess, "Payment successful")

		state, ok := tracker.Get("order-1")
		require.True(t, ok)
		assert.Equal(t, domain.StatusSuccess, state.Status)
		assert.Equal(t, "Payment successful", state.Message)
		assert.True(t, state.Status.Terminal())
	})

	t.Run("Success_LateFinishWithoutBeginIsKept", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Finish("order-1", domain.StatusFailed, "Payment failed")

		state, ok := tracker.Get("order-1")
		require.True(t, ok)
		assert.Equal(t, domain.StatusFailed, state.Status)
	})

	t.Run("Success_GetReturnsACopy", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Begin("order-1")

		state, _ := tracker.Get("order-1")
		state.Status = domain.StatusFailed

		fresh, _ := tracker.Get("order-1")
		assert.Equal(t, domain.StatusInProgress, fresh.Status)
	})

	t.Run("Error_UnknownOrder", func(t *testing.T) {
		tracker := NewTracker()

		_, ok := tracker.Get("order-404")
		assert.False(t, ok)
	})
}
