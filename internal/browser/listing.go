package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/crawlkit/harvester/internal/harvest"
)

// ListingView is the rendered listing surface, held open in its own tab for
// the whole run. It implements harvest.ListingSurface.
type ListingView struct {
	session      *Session
	tabCtx       context.Context
	tabCancel    context.CancelFunc
	linkSelector string
	readyTimeout time.Duration
}

// OpenListing navigates a dedicated tab to the listing entry point.
func (s *Session) OpenListing(ctx context.Context, listingURL, linkSelector string, readyTimeout time.Duration) (*ListingView, error) {
	if readyTimeout <= 0 {
		readyTimeout = 20 * time.Second
	}
	tabCtx, tabCancel := s.NewTab()

	navCtx, cancel := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancel()
	err := chromedp.Run(navCtx,
		s.tabSetup(),
		chromedp.Navigate(listingURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("open listing %s: %w", listingURL, err)
	}

	return &ListingView{
		session:      s,
		tabCtx:       tabCtx,
		tabCancel:    tabCancel,
		linkSelector: linkSelector,
		readyTimeout: readyTimeout,
	}, nil
}

// Close releases the listing tab.
func (v *ListingView) Close() {
	v.tabCancel()
}

// EnsureReady waits until at least one item-link affordance is visible.
func (v *ListingView) EnsureReady(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(v.tabCtx, v.readyTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(v.linkSelector, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", harvest.ErrListingNotReady, v.linkSelector, err)
	}
	return nil
}

// Reveal scrolls the listing to its current bottom, triggering lazy loads.
func (v *ListingView) Reveal(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(v.tabCtx, v.session.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	if err != nil {
		return fmt.Errorf("scroll listing: %w", err)
	}
	return nil
}

// Extent reports the total rendered content length, the reveal signal
// compared across scroll steps.
func (v *ListingView) Extent(ctx context.Context) (int64, error) {
	runCtx, cancel := context.WithTimeout(v.tabCtx, v.session.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var length int64
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`document.body ? document.body.innerHTML.length : 0`, &length),
	)
	if err != nil {
		return 0, fmt.Errorf("measure listing extent: %w", err)
	}
	return length, nil
}

// Snapshot returns the current DOM markup and the view's current URL.
func (v *ListingView) Snapshot(ctx context.Context) (string, string, error) {
	runCtx, cancel := context.WithTimeout(v.tabCtx, v.session.cfg.NavTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var html, pageURL string
	err := chromedp.Run(runCtx,
		chromedp.Location(&pageURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", fmt.Errorf("snapshot listing: %w", err)
	}
	return html, pageURL, nil
}

// forwardCancel propagates an orchestrator-level cancellation into a
// tab-scoped chromedp run.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
