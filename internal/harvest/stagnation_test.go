package harvest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStagnationDetector(t *testing.T) {
	t.Run("stops after exactly the threshold of zero-added rounds", func(t *testing.T) {
		detector := NewStagnationDetector(3)
		require.False(t, detector.RecordRound(RoundOutcome{Discovered: 40, Added: 0}))
		require.False(t, detector.RecordRound(RoundOutcome{Discovered: 40, Added: 0}))
		require.True(t, detector.RecordRound(RoundOutcome{Discovered: 40, Added: 0}))
	})

	t.Run("any added record resets the streak", func(t *testing.T) {
		detector := NewStagnationDetector(2)
		require.False(t, detector.RecordRound(RoundOutcome{Added: 0}))
		require.False(t, detector.RecordRound(RoundOutcome{Added: 1}))
		require.Equal(t, 0, detector.Streak())
		require.False(t, detector.RecordRound(RoundOutcome{Added: 0}))
		require.True(t, detector.RecordRound(RoundOutcome{Added: 0}))
	})

	t.Run("duplicates discovered do not count as progress", func(t *testing.T) {
		detector := NewStagnationDetector(2)
		require.False(t, detector.RecordRound(RoundOutcome{Discovered: 100, Added: 0}))
		require.True(t, detector.RecordRound(RoundOutcome{Discovered: 100, Added: 0}))
	})

	t.Run("non-positive threshold falls back to default", func(t *testing.T) {
		detector := NewStagnationDetector(0)
		for i := 0; i < 9; i++ {
			require.False(t, detector.RecordRound(RoundOutcome{}))
		}
		require.True(t, detector.RecordRound(RoundOutcome{}))
	})
}
