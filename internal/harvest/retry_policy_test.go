package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinearBackoffPolicyBackoff(t *testing.T) {
	policy := LinearBackoffPolicy{MaxAttempts: 5, Base: time.Second, Cap: 3 * time.Second}

	require.Equal(t, time.Second, policy.Backoff(1))
	require.Equal(t, 2*time.Second, policy.Backoff(2))
	require.Equal(t, 3*time.Second, policy.Backoff(3))
	// capped from here on
	require.Equal(t, 3*time.Second, policy.Backoff(4))
	require.Equal(t, 3*time.Second, policy.Backoff(100))
	require.Equal(t, time.Second, policy.Backoff(0))
}

func TestLinearBackoffPolicyShouldRetry(t *testing.T) {
	policy := LinearBackoffPolicy{MaxAttempts: 3, Base: time.Millisecond, Cap: time.Millisecond}
	transient := errors.New("net: connection reset")

	t.Run("retries transient failures under budget", func(t *testing.T) {
		require.True(t, policy.ShouldRetry(transient, 1))
		require.True(t, policy.ShouldRetry(transient, 2))
	})

	t.Run("stops at the attempt budget", func(t *testing.T) {
		require.False(t, policy.ShouldRetry(transient, 3))
	})

	t.Run("never retries nil errors", func(t *testing.T) {
		require.False(t, policy.ShouldRetry(nil, 1))
	})

	t.Run("never retries cancellation", func(t *testing.T) {
		require.False(t, policy.ShouldRetry(context.Canceled, 1))
		require.False(t, policy.ShouldRetry(context.DeadlineExceeded, 1))
	})

	t.Run("never retries content failures", func(t *testing.T) {
		wrapped := errors.Join(errors.New("https://x/item/a"), ErrEmptyTitle)
		require.False(t, policy.ShouldRetry(ErrEmptyTitle, 1))
		require.False(t, policy.ShouldRetry(wrapped, 1))
	})
}

func TestJitter(t *testing.T) {
	require.Equal(t, time.Duration(0), Jitter(0))
	for i := 0; i < 32; i++ {
		j := Jitter(50 * time.Millisecond)
		require.GreaterOrEqual(t, j, time.Duration(0))
		require.Less(t, j, 50*time.Millisecond)
	}
}
