package harvest

import (
	"context"
	"fmt"
	"time"
)

// Signal samples some monotonic-ish growth measure of a rendered surface,
// e.g. total content length.
type Signal func(ctx context.Context) (int64, error)

// StableWhen drives step() until signal stops changing for unchangedFor
// consecutive samples, or maxSteps steps have run. Between samples it waits
// settle via pause. This is a heuristic for "lazy content has stopped
// appearing", not a proof of completeness; the work per call is bounded.
func StableWhen(ctx context.Context, signal Signal, step func(ctx context.Context) error, pause Pauser, settle time.Duration, unchangedFor, maxSteps int) error {
	if unchangedFor <= 0 {
		unchangedFor = 1
	}
	last, err := signal(ctx)
	if err != nil {
		return fmt.Errorf("sample signal: %w", err)
	}
	unchanged := 0
	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(ctx); err != nil {
			return fmt.Errorf("reveal step: %w", err)
		}
		pause.Pause(ctx, settle)
		cur, err := signal(ctx)
		if err != nil {
			return fmt.Errorf("sample signal: %w", err)
		}
		if cur == last {
			unchanged++
			if unchanged >= unchangedFor {
				return nil
			}
		} else {
			unchanged = 0
			last = cur
		}
	}
	return nil
}
