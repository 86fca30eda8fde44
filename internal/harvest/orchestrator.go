package harvest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Orchestrator composes the crawl loop: discover, dedupe, fetch, persist,
// pace, repeat. It owns the CrawlState; everything below startup is caught
// here and degraded to a journal entry or a counted round.
type Orchestrator struct {
	cfg        Config
	state      *CrawlState
	frontier   Frontier
	fetcher    Fetcher
	scope      *Scope
	results    ResultSink
	failures   FailureSink
	stagnation *StagnationDetector
	diag       Diagnostics
	mirror     RecordMirror
	clock      Clock
	pause      Pauser
	logger     *zap.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	State      *CrawlState
	Frontier   Frontier
	Fetcher    Fetcher
	Scope      *Scope
	Results    ResultSink
	Failures   FailureSink
	Stagnation *StagnationDetector
	Diag       Diagnostics
	Mirror     RecordMirror
	Clock      Clock
	Pause      Pauser
	Logger     *zap.Logger
}

// NewOrchestrator wires the engine together.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if deps.Pause == nil {
		deps.Pause = TimerPauser{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Diag == nil {
		deps.Diag = NopDiagnostics{}
	}
	if deps.Stagnation == nil {
		deps.Stagnation = NewStagnationDetector(cfg.MaxNoNew)
	}
	return &Orchestrator{
		cfg:        cfg,
		state:      deps.State,
		frontier:   deps.Frontier,
		fetcher:    deps.Fetcher,
		scope:      deps.Scope,
		results:    deps.Results,
		failures:   deps.Failures,
		stagnation: deps.Stagnation,
		diag:       deps.Diag,
		mirror:     deps.Mirror,
		clock:      deps.Clock,
		pause:      deps.Pause,
		logger:     deps.Logger,
	}
}

// Run executes rounds until the target is reached or the listing stagnates.
// An error return means the run was aborted (context canceled or the result
// journal stopped accepting writes); partial output is never discarded.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	for o.state.Total() < o.cfg.Target {
		if err := ctx.Err(); err != nil {
			return OutcomeStagnant, fmt.Errorf("crawl aborted: %w", err)
		}
		roundsTotal.Inc()

		candidates, err := o.frontier.Discover(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeStagnant, fmt.Errorf("crawl aborted: %w", ctx.Err())
			}
			o.logger.Warn("listing round failed", zap.Error(err))
			o.diag.Capture(ctx, "listing-error")
			if o.stagnation.RecordRound(RoundOutcome{}) {
				return OutcomeStagnant, nil
			}
			o.pause.Pause(ctx, o.cfg.RoundPause)
			continue
		}

		if len(candidates) == 0 {
			o.logger.Warn("listing produced no candidates")
			o.diag.Capture(ctx, "empty-listing")
		}

		added, err := o.processCandidates(ctx, candidates)
		if err != nil {
			return OutcomeStagnant, err
		}

		if o.stagnation.RecordRound(RoundOutcome{Discovered: len(candidates), Added: added}) {
			o.logger.Info("listing stagnant, giving up",
				zap.Int("rounds_without_progress", o.stagnation.Streak()),
				zap.Int("total", o.state.Total()),
			)
			return OutcomeStagnant, nil
		}
		if added == 0 {
			o.pause.Pause(ctx, o.cfg.RoundPause)
		}
	}
	return OutcomeTargetReached, nil
}

// processCandidates fetches each new candidate in discovery order. A failed
// candidate is journaled and skipped; it never aborts the batch. The only
// errors returned are journal write failures, which make further progress
// meaningless.
func (o *Orchestrator) processCandidates(ctx context.Context, candidates []string) (int, error) {
	added := 0
	for _, candidate := range candidates {
		if o.state.Total() >= o.cfg.Target {
			break
		}
		if err := ctx.Err(); err != nil {
			return added, fmt.Errorf("crawl aborted: %w", err)
		}
		if o.state.Contains(candidate) {
			continue
		}

		detail, err := o.fetcher.Fetch(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return added, fmt.Errorf("crawl aborted: %w", ctx.Err())
			}
			o.recordFailure(candidate, err)
			continue
		}

		key := o.recordKey(candidate, detail)
		if o.state.Contains(key) {
			o.logger.Debug("redirected to already-saved item",
				zap.String("candidate", candidate),
				zap.String("final", key),
			)
			continue
		}

		price := CollapseWhitespace(detail.Price)
		description := CollapseWhitespace(detail.Description)
		rec := Record{
			CategoryURL: o.cfg.ListingURL,
			URL:         key,
			Title:       CollapseWhitespace(detail.Title),
			Price:       OptionalText(price),
			Description: OptionalText(description),
			ScrapedAt:   o.clock.Now(),
		}
		if err := o.results.Append(rec); err != nil {
			return added, fmt.Errorf("persist record: %w", err)
		}
		o.state.Add(key)
		added++
		recordsSaved.Inc()
		o.logger.Info("saved record",
			zap.String("url", key),
			zap.String("title", rec.Title),
			zap.Int("total", o.state.Total()),
		)
		o.mirrorRecord(ctx, rec)

		o.pause.Pause(ctx, o.cfg.FetchDelay+Jitter(o.cfg.FetchJitter))
	}
	return added, nil
}

func (o *Orchestrator) recordFailure(candidate string, cause error) {
	fetchFailures.Inc()
	reason := "fetch failed"
	if errors.Is(cause, ErrEmptyTitle) {
		reason = "empty title"
	}
	o.logger.Warn("candidate failed",
		zap.String("url", candidate),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	entry := Failure{URL: candidate, Reason: cause.Error(), At: o.clock.Now()}
	if err := o.failures.Append(entry); err != nil {
		o.logger.Error("failure journal append failed", zap.Error(err))
	}
}

// recordKey prefers the canonical form of the fetch's final URL so redirects
// cannot smuggle in duplicate identities.
func (o *Orchestrator) recordKey(candidate string, detail Detail) string {
	if detail.FinalURL == "" {
		return candidate
	}
	canonical, ok := o.scope.Canonicalize(detail.FinalURL, nil)
	if !ok {
		return candidate
	}
	return canonical
}

func (o *Orchestrator) mirrorRecord(ctx context.Context, rec Record) {
	if o.mirror == nil {
		return
	}
	if err := o.mirror.Save(ctx, rec); err != nil {
		o.logger.Warn("mirror save failed", zap.String("url", rec.URL), zap.Error(err))
	}
}

// NopDiagnostics discards capture requests.
type NopDiagnostics struct{}

// Capture implements Diagnostics.
func (NopDiagnostics) Capture(context.Context, string) {}
