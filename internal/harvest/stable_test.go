package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStableWhen(t *testing.T) {
	pauser := &recordingPauser{}

	t.Run("stops once the signal plateaus", func(t *testing.T) {
		values := []int64{100, 250, 400, 400, 400}
		idx := 0
		signal := func(context.Context) (int64, error) {
			v := values[idx]
			if idx < len(values)-1 {
				idx++
			}
			return v, nil
		}
		steps := 0
		step := func(context.Context) error { steps++; return nil }

		err := StableWhen(context.Background(), signal, step, pauser, time.Millisecond, 2, 20)
		require.NoError(t, err)
		// grows twice, then two unchanged samples end the loop
		require.Equal(t, 4, steps)
	})

	t.Run("bounded by max steps when the signal keeps growing", func(t *testing.T) {
		var v int64
		signal := func(context.Context) (int64, error) { v += 10; return v, nil }
		steps := 0
		step := func(context.Context) error { steps++; return nil }

		err := StableWhen(context.Background(), signal, step, &recordingPauser{}, 0, 2, 5)
		require.NoError(t, err)
		require.Equal(t, 5, steps)
	})

	t.Run("propagates step errors", func(t *testing.T) {
		boom := errors.New("scroll failed")
		signal := func(context.Context) (int64, error) { return 1, nil }
		step := func(context.Context) error { return boom }

		err := StableWhen(context.Background(), signal, step, &recordingPauser{}, 0, 1, 3)
		require.ErrorIs(t, err, boom)
	})

	t.Run("propagates signal errors", func(t *testing.T) {
		boom := errors.New("measure failed")
		signal := func(context.Context) (int64, error) { return 0, boom }

		err := StableWhen(context.Background(), signal, func(context.Context) error { return nil }, &recordingPauser{}, 0, 1, 3)
		require.ErrorIs(t, err, boom)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		signal := func(context.Context) (int64, error) { return 1, nil }

		err := StableWhen(ctx, signal, func(context.Context) error { return nil }, &recordingPauser{}, 0, 1, 3)
		require.ErrorIs(t, err, context.Canceled)
	})
}
