package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crawlkit/harvester/internal/browser"
	"github.com/crawlkit/harvester/internal/clock/system"
	"github.com/crawlkit/harvester/internal/fetcher/static"
	"github.com/crawlkit/harvester/internal/harvest"
	"github.com/crawlkit/harvester/internal/logging"
	"github.com/crawlkit/harvester/internal/storage/postgres"
)

// newHarvestCmd creates the 'run' subcommand, which executes a harvest until
// the target is reached or the listing stagnates.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the harvest loop",
		Long: `Crawls the configured listing surface, opening each discovered item's
detail page until the target number of unique records has been journaled or
the listing stops yielding new items. Restarting with the same output path
resumes where the previous run stopped.`,
		RunE: runHarvestCommand,
	}
	return cmd
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	logger := logging.L
	cfg, err := harvest.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load harvest config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := harvest.RestoreState(cfg.OutPath, logger)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	logger.Info("state restored",
		zap.Int("total", state.Total()),
		zap.Int("malformed_lines", state.MalformedLines()),
		zap.String("journal", cfg.OutPath),
	)

	results, err := harvest.NewResultJournal(cfg.OutPath)
	if err != nil {
		return fmt.Errorf("open result journal: %w", err)
	}
	defer results.Close() //nolint:errcheck // closed on exit
	failures, err := harvest.NewFailureJournal(cfg.FailOutPath)
	if err != nil {
		return fmt.Errorf("open failure journal: %w", err)
	}
	defer failures.Close() //nolint:errcheck // closed on exit

	session, err := browser.NewSession(browser.Config{
		Headless:       cfg.Headless,
		UserAgent:      cfg.UserAgent,
		BlockResources: cfg.BlockResources,
		NavTimeout:     cfg.NavTimeout,
		HostQPS:        cfg.HostQPS,
	}, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer session.Close()

	listing, err := session.OpenListing(ctx, cfg.ListingURL, cfg.LinkSelector, cfg.ReadyTimeout)
	if err != nil {
		return fmt.Errorf("open listing: %w", err)
	}
	defer listing.Close()

	fetcher, err := buildFetcher(cfg, session, logger)
	if err != nil {
		return err
	}

	mirror, err := buildMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if mirror != nil {
		defer mirror.Close()
	}

	runID := uuid.NewString()
	scope := cfg.Scope()
	deps := harvest.Deps{
		State:   state,
		Scope:   scope,
		Fetcher: fetcher,
		Frontier: harvest.NewDiscoverer(listing, scope, harvest.DiscovererConfig{
			LinkSelector: cfg.LinkSelector,
			RevealSteps:  cfg.RevealSteps,
			Settle:       cfg.RevealSettle,
			StableAfter:  cfg.StableAfter,
		}, nil, logger),
		Results:  results,
		Failures: failures,
		Diag:     browser.NewDiagnostics(listing, cfg.DiagnosticsDir, runID, logger),
		Clock:    system.New(),
		Logger:   logger.With(zap.String("run_id", runID)),
	}
	if mirror != nil {
		deps.Mirror = mirror
	}
	engine := harvest.NewOrchestrator(cfg, deps)

	outcome, err := engine.Run(ctx)
	switch {
	case err == nil:
		logger.Info("harvest finished",
			zap.String("outcome", outcome.String()),
			zap.Int("total_saved", state.Total()),
			zap.String("out", results.Path()),
			zap.String("fail_out", failures.Path()),
		)
	case errors.Is(err, context.Canceled):
		logger.Info("harvest interrupted",
			zap.Int("total_saved", state.Total()),
			zap.String("out", results.Path()),
		)
	default:
		return fmt.Errorf("run harvest: %w", err)
	}
	return nil
}

func buildFetcher(cfg harvest.Config, session *browser.Session, logger *zap.Logger) (harvest.Fetcher, error) {
	var attempt harvest.DetailFetcher
	switch cfg.Engine {
	case harvest.EngineStatic:
		f, err := static.New(static.Config{
			UserAgent:      cfg.UserAgent,
			RequestTimeout: cfg.NavTimeout,
			Title:          cfg.TitleSelector,
			Price:          cfg.PriceSelector,
			Description:    cfg.DescriptionSelector,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init static fetcher: %w", err)
		}
		attempt = f
	default:
		attempt = browser.NewDetailFetcher(session, browser.Selectors{
			Title:       cfg.TitleSelector,
			Price:       cfg.PriceSelector,
			Description: cfg.DescriptionSelector,
		}, cfg.NavTimeout)
	}
	return harvest.NewRetryingFetcher(attempt, cfg.RetryPolicy(), nil, logger), nil
}

func buildMirror(ctx context.Context, cfg harvest.Config, logger *zap.Logger) (*postgres.RecordStore, error) {
	if cfg.MirrorDSN == "" {
		return nil, nil
	}
	store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
		DSN:   cfg.MirrorDSN,
		Table: cfg.MirrorTable,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres mirror: %w", err)
	}
	logger.Info("postgres mirror enabled", zap.String("table", cfg.MirrorTable))
	return store, nil
}
