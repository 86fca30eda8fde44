package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RetryingFetcher wraps a single-attempt DetailFetcher with the retry state
// machine: Attempting(n) -> Success | RetryableFailure(n+1) | ExhaustedFailure.
// Each attempt runs on a fresh isolated view; reusing a stuck view after a
// failed navigation risks inheriting corrupted state, so isolation is the
// attempt fetcher's contract, not an option.
type RetryingFetcher struct {
	attempt DetailFetcher
	policy  RetryPolicy
	pause   Pauser
	logger  *zap.Logger
}

// NewRetryingFetcher composes the attempt fetcher with a retry policy.
func NewRetryingFetcher(attempt DetailFetcher, policy RetryPolicy, pause Pauser, logger *zap.Logger) *RetryingFetcher {
	if pause == nil {
		pause = TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{
		attempt: attempt,
		policy:  policy,
		pause:   pause,
		logger:  logger,
	}
}

// Fetch obtains the detail page for rawURL, retrying transient navigation
// failures with backoff. An empty title surfaces immediately as
// ErrEmptyTitle; exhausting the budget returns the last underlying cause.
func (f *RetryingFetcher) Fetch(ctx context.Context, rawURL string) (Detail, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		detail, err := f.attempt.FetchOnce(ctx, rawURL)
		if err == nil {
			return detail, nil
		}
		lastErr = err
		if !f.policy.ShouldRetry(err, attempt) {
			break
		}
		fetchRetries.Inc()
		delay := f.policy.Backoff(attempt)
		f.logger.Warn("detail fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		f.pause.Pause(ctx, delay)
		if ctx.Err() != nil {
			return Detail{}, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
	}
	return Detail{}, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}
