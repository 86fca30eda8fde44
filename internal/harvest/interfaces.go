package harvest

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared between the engine and its collaborators.
var (
	// ErrEmptyTitle marks a page that rendered but produced no title.
	// It is a definitive content failure and is never retried.
	ErrEmptyTitle = errors.New("empty title after extraction")
	// ErrListingNotReady marks a listing surface that never rendered an
	// item-link affordance within its readiness timeout.
	ErrListingNotReady = errors.New("listing surface not ready")
)

// DetailFetcher performs exactly one navigation attempt against a detail
// page. Implementations must release every view resource they open,
// regardless of outcome.
type DetailFetcher interface {
	FetchOnce(ctx context.Context, rawURL string) (Detail, error)
}

// Fetcher obtains a detail page, retrying transient failures internally.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Detail, error)
}

// ListingSurface is the rendered listing view the frontier is discovered on.
type ListingSurface interface {
	// EnsureReady blocks until at least one item-link affordance has
	// rendered, or fails with ErrListingNotReady.
	EnsureReady(ctx context.Context) error
	// Reveal triggers one reveal-more action (typically a scroll).
	Reveal(ctx context.Context) error
	// Extent reports the reveal-extent signal used to decide whether lazy
	// content is still appearing.
	Extent(ctx context.Context) (int64, error)
	// Snapshot returns the current DOM markup and the view's current URL.
	Snapshot(ctx context.Context) (html string, pageURL string, err error)
}

// Frontier yields the current batch of in-scope candidate URLs.
type Frontier interface {
	Discover(ctx context.Context) ([]string, error)
}

// ResultSink appends one successful record per call to a durable journal.
type ResultSink interface {
	Append(rec Record) error
}

// FailureSink appends one failure entry per call to a durable journal.
type FailureSink interface {
	Append(f Failure) error
}

// RecordMirror receives records downstream of the journal, best-effort.
type RecordMirror interface {
	Save(ctx context.Context, rec Record) error
}

// Diagnostics captures a page snapshot for offline debugging. It must never
// fail the caller.
type Diagnostics interface {
	Capture(ctx context.Context, label string)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// Pauser abstracts sleeping so retry and pacing logic runs without real
// timers under test.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser sleeps on a real timer, waking early on context cancellation.
type TimerPauser struct{}

// Pause blocks for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
