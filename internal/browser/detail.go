package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/crawlkit/harvester/internal/harvest"
)

// Selectors names the extraction points on a detail page. Title is required;
// Price and Description are best-effort.
type Selectors struct {
	Title       string
	Price       string
	Description string
}

// DetailFetcher performs one detail-page navigation per call, each on a
// fresh tab. It implements harvest.DetailFetcher.
type DetailFetcher struct {
	session   *Session
	selectors Selectors
	timeout   time.Duration
}

// NewDetailFetcher builds the browser-backed single-attempt fetcher.
func NewDetailFetcher(session *Session, selectors Selectors, timeout time.Duration) *DetailFetcher {
	if timeout <= 0 {
		timeout = session.cfg.NavTimeout
	}
	return &DetailFetcher{
		session:   session,
		selectors: selectors,
		timeout:   timeout,
	}
}

// FetchOnce opens a fresh tab, waits for the title element to materialize,
// and extracts the record fields. The tab is released on every exit path.
func (f *DetailFetcher) FetchOnce(ctx context.Context, rawURL string) (harvest.Detail, error) {
	if err := f.session.waitHostBudget(ctx, rawURL); err != nil {
		return harvest.Detail{}, err
	}

	tabCtx, tabCancel := f.session.NewTab()
	defer tabCancel()

	taskCtx, taskCancel := context.WithTimeout(tabCtx, f.timeout)
	defer taskCancel()
	stop := forwardCancel(ctx, taskCancel)
	defer stop()

	var finalURL, title, price, description string
	actions := []chromedp.Action{
		f.session.tabSetup(),
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible(f.selectors.Title, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		selectorText(f.selectors.Title, &title),
	}
	if f.selectors.Price != "" {
		actions = append(actions, selectorText(f.selectors.Price, &price))
	}
	if f.selectors.Description != "" {
		actions = append(actions, selectorText(f.selectors.Description, &description))
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return harvest.Detail{}, fmt.Errorf("navigate %s: %w", rawURL, err)
	}

	title = harvest.CollapseWhitespace(title)
	if title == "" {
		return harvest.Detail{}, fmt.Errorf("%s: %w", rawURL, harvest.ErrEmptyTitle)
	}
	return harvest.Detail{
		FinalURL:    finalURL,
		Title:       title,
		Price:       harvest.CollapseWhitespace(price),
		Description: harvest.CollapseWhitespace(description),
	}, nil
}

// selectorText reads textContent of the first match, tolerating absence.
func selectorText(selector string, out *string) chromedp.Action {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); return el ? el.textContent : ""; })()`,
		strconv.Quote(selector),
	)
	return chromedp.Evaluate(script, out)
}
