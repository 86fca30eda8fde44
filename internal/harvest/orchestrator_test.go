package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFrontier struct {
	batches [][]string
	errs    []error
	calls   int
}

func (f *fakeFrontier) Discover(context.Context) ([]string, error) {
	i := f.calls
	f.calls++
	if len(f.errs) > 0 {
		ei := i
		if ei >= len(f.errs) {
			ei = len(f.errs) - 1
		}
		if f.errs[ei] != nil {
			return nil, f.errs[ei]
		}
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	return append([]string(nil), f.batches[i]...), nil
}

type fakeFetch struct {
	details map[string]Detail
	fails   map[string]error
	calls   []string
}

func (f *fakeFetch) Fetch(_ context.Context, rawURL string) (Detail, error) {
	f.calls = append(f.calls, rawURL)
	if err, ok := f.fails[rawURL]; ok {
		return Detail{}, err
	}
	if d, ok := f.details[rawURL]; ok {
		return d, nil
	}
	return Detail{FinalURL: rawURL, Title: "T"}, nil
}

type memResults struct {
	records   []Record
	appendErr error
}

func (m *memResults) Append(rec Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

type memFailures struct {
	entries []Failure
}

func (m *memFailures) Append(f Failure) error {
	m.entries = append(m.entries, f)
	return nil
}

type fakeClock struct {
	at time.Time
}

func (c fakeClock) Now() time.Time { return c.at }

type fakeDiag struct {
	labels []string
}

func (d *fakeDiag) Capture(_ context.Context, label string) {
	d.labels = append(d.labels, label)
}

func testConfig(target, maxNoNew int) Config {
	return Config{
		ListingURL:    "https://books.example.com/catalog/fiction",
		Host:          "books.example.com",
		Target:        target,
		MaxNoNew:      maxNoNew,
		FetchAttempts: 2,
		BackoffBase:   time.Millisecond,
		BackoffCap:    time.Millisecond,
	}
}

func newTestOrchestrator(cfg Config, frontier Frontier, fetch Fetcher, state *CrawlState, results ResultSink, failures FailureSink, diag Diagnostics) *Orchestrator {
	return NewOrchestrator(cfg, Deps{
		State:    state,
		Frontier: frontier,
		Fetcher:  fetch,
		Scope:    NewScope(cfg.Host, nil),
		Results:  results,
		Failures: failures,
		Diag:     diag,
		Clock:    fakeClock{at: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		Pause:    &recordingPauser{},
	})
}

func TestOrchestratorRun(t *testing.T) {
	itemA := "https://books.example.com/item/a"
	itemB := "https://books.example.com/item/b"
	itemC := "https://books.example.com/item/c"

	t.Run("reaches the target in one round", func(t *testing.T) {
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB, itemC}}}
		fetch := &fakeFetch{}
		results := &memResults{}
		failures := &memFailures{}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(3, 5), frontier, fetch, state, results, failures, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Equal(t, 3, state.Total())
		require.Len(t, results.records, 3)
		require.Empty(t, failures.entries)
		require.Equal(t, []string{itemA, itemB, itemC}, fetch.calls)
		require.Equal(t, itemA, results.records[0].URL)
		require.Equal(t, "https://books.example.com/catalog/fiction", results.records[0].CategoryURL)
	})

	t.Run("skips already-persisted candidates without refetching", func(t *testing.T) {
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB}}}
		fetch := &fakeFetch{}
		results := &memResults{}
		state := NewCrawlState()
		state.Add(itemA)

		engine := newTestOrchestrator(testConfig(2, 5), frontier, fetch, state, results, &memFailures{}, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Equal(t, []string{itemB}, fetch.calls)
		require.Len(t, results.records, 1)
	})

	t.Run("stops after exactly maxNoNew stagnant rounds", func(t *testing.T) {
		state := NewCrawlState()
		state.Add(itemA)
		frontier := &fakeFrontier{batches: [][]string{{itemA}}}
		fetch := &fakeFetch{}

		engine := newTestOrchestrator(testConfig(10, 4), frontier, fetch, state, &memResults{}, &memFailures{}, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeStagnant, outcome)
		require.Equal(t, 4, frontier.calls)
		require.Empty(t, fetch.calls)
	})

	t.Run("one failing candidate never blocks the rest of the batch", func(t *testing.T) {
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB, itemC}}}
		fetch := &fakeFetch{fails: map[string]error{itemB: errors.New("exhausted retries")}}
		results := &memResults{}
		failures := &memFailures{}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(2, 5), frontier, fetch, state, results, failures, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Equal(t, []string{itemA, itemB, itemC}, fetch.calls)
		require.Len(t, results.records, 2)
		require.Len(t, failures.entries, 1)
		require.Equal(t, itemB, failures.entries[0].URL)
	})

	t.Run("empty-title failures are journaled and skipped", func(t *testing.T) {
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB}}}
		fetch := &fakeFetch{fails: map[string]error{itemA: ErrEmptyTitle}}
		failures := &memFailures{}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(1, 5), frontier, fetch, state, &memResults{}, failures, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Len(t, failures.entries, 1)
		require.Equal(t, 1, state.Total())
	})

	t.Run("redirects collapse onto already-saved identities", func(t *testing.T) {
		// itemB redirects to itemA's canonical URL with query noise
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB, itemC}}}
		fetch := &fakeFetch{details: map[string]Detail{
			itemB: {FinalURL: itemA + "?utm=promo", Title: "A again"},
		}}
		results := &memResults{}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(2, 5), frontier, fetch, state, results, &memFailures{}, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Len(t, results.records, 2)
		require.Equal(t, itemA, results.records[0].URL)
		require.Equal(t, itemC, results.records[1].URL)
	})

	t.Run("listing errors degrade to stagnant rounds with diagnostics", func(t *testing.T) {
		boom := errors.New("listing readiness: timeout")
		frontier := &fakeFrontier{errs: []error{boom}}
		diag := &fakeDiag{}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(1, 3), frontier, &fakeFetch{}, state, &memResults{}, &memFailures{}, diag)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeStagnant, outcome)
		require.Equal(t, 3, frontier.calls)
		require.Equal(t, []string{"listing-error", "listing-error", "listing-error"}, diag.labels)
	})

	t.Run("result journal failure aborts the run", func(t *testing.T) {
		frontier := &fakeFrontier{batches: [][]string{{itemA}}}
		results := &memResults{appendErr: errors.New("disk full")}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(1, 5), frontier, &fakeFetch{}, state, results, &memFailures{}, nil)
		_, err := engine.Run(context.Background())

		require.Error(t, err)
		require.Contains(t, err.Error(), "persist record")
	})

	t.Run("canceled context aborts between rounds", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		frontier := &fakeFrontier{batches: [][]string{{itemA}}}
		state := NewCrawlState()

		engine := newTestOrchestrator(testConfig(1, 5), frontier, &fakeFetch{}, state, &memResults{}, &memFailures{}, nil)
		_, err := engine.Run(ctx)

		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, frontier.calls)
	})

	t.Run("resumed state counts toward the target", func(t *testing.T) {
		state := NewCrawlState()
		state.Add(itemA)
		state.Add(itemB)
		frontier := &fakeFrontier{batches: [][]string{{itemA, itemB, itemC}}}
		fetch := &fakeFetch{}
		results := &memResults{}

		engine := newTestOrchestrator(testConfig(3, 5), frontier, fetch, state, results, &memFailures{}, nil)
		outcome, err := engine.Run(context.Background())

		require.NoError(t, err)
		require.Equal(t, OutcomeTargetReached, outcome)
		require.Equal(t, []string{itemC}, fetch.calls)
		require.Len(t, results.records, 1)
		require.Equal(t, 3, state.Total())
	})
}
