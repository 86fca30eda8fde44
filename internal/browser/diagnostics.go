package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Diagnostics captures listing snapshots (screenshot + markup) for offline
// debugging. Every failure inside Capture is swallowed and logged; this is a
// side effect, never part of the crawl's decision logic.
type Diagnostics struct {
	listing *ListingView
	dir     string
	runID   string
	logger  *zap.Logger
}

// NewDiagnostics writes artifacts under dir, tagged with runID. An empty dir
// disables capture.
func NewDiagnostics(listing *ListingView, dir, runID string, logger *zap.Logger) *Diagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnostics{
		listing: listing,
		dir:     dir,
		runID:   runID,
		logger:  logger,
	}
}

// Capture implements harvest.Diagnostics.
func (d *Diagnostics) Capture(ctx context.Context, label string) {
	if d == nil || d.dir == "" || d.listing == nil {
		return
	}
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		d.logger.Warn("diagnostics dir unavailable", zap.Error(err))
		return
	}

	runCtx, cancel := context.WithTimeout(d.listing.tabCtx, 10*time.Second)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	stamp := time.Now().UTC().Format("20060102T150405")
	base := fmt.Sprintf("%s_%s_%s", d.runID, label, stamp)

	var png []byte
	var html string
	if err := chromedp.Run(runCtx,
		chromedp.CaptureScreenshot(&png),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		d.logger.Warn("diagnostics capture failed", zap.String("label", label), zap.Error(err))
		return
	}

	if err := os.WriteFile(filepath.Join(d.dir, base+".png"), png, 0o640); err != nil {
		d.logger.Warn("write diagnostic screenshot failed", zap.Error(err))
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(html), 0o640); err != nil {
		d.logger.Warn("write diagnostic markup failed", zap.Error(err))
	}
	d.logger.Info("captured diagnostics", zap.String("label", label), zap.String("artifact", base))
}
