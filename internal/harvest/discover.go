package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Discoverer drives progressive reveal of a listing surface and extracts the
// current batch of in-scope candidate URLs in document order.
type Discoverer struct {
	listing      ListingSurface
	scope        *Scope
	linkSelector string
	revealSteps  int
	settle       time.Duration
	stableAfter  int
	pause        Pauser
	logger       *zap.Logger
}

// DiscovererConfig tunes the reveal loop.
type DiscovererConfig struct {
	LinkSelector string
	RevealSteps  int
	Settle       time.Duration
	StableAfter  int
}

// NewDiscoverer builds a Discoverer over the given listing surface.
func NewDiscoverer(listing ListingSurface, scope *Scope, cfg DiscovererConfig, pause Pauser, logger *zap.Logger) *Discoverer {
	if cfg.RevealSteps <= 0 {
		cfg.RevealSteps = 8
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = 2
	}
	if pause == nil {
		pause = TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		listing:      listing,
		scope:        scope,
		linkSelector: cfg.LinkSelector,
		revealSteps:  cfg.RevealSteps,
		settle:       cfg.Settle,
		stableAfter:  cfg.StableAfter,
		pause:        pause,
		logger:       logger,
	}
}

// Discover confirms listing readiness, reveals lazy content until the extent
// signal stabilizes, and returns the deduplicated in-scope candidates from
// the resulting DOM snapshot, first-seen order preserved.
func (d *Discoverer) Discover(ctx context.Context) ([]string, error) {
	if err := d.listing.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("listing readiness: %w", err)
	}

	err := StableWhen(ctx, d.listing.Extent, d.listing.Reveal, d.pause, d.settle, d.stableAfter, d.revealSteps)
	if err != nil {
		return nil, fmt.Errorf("reveal listing: %w", err)
	}

	html, pageURL, err := d.listing.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot listing: %w", err)
	}

	candidates := ExtractItemLinks(html, pageURL, d.linkSelector, d.scope)
	d.logger.Debug("discovered candidates",
		zap.Int("count", len(candidates)),
		zap.String("listing", pageURL),
	)
	return candidates, nil
}

// ExtractItemLinks parses markup for item-link affordances, resolves each
// href against pageURL, canonicalizes, filters to in-scope items, and
// deduplicates within the batch preserving document order.
func ExtractItemLinks(html, pageURL, selector string, scope *Scope) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var base *url.URL
	if parsed, err := url.Parse(pageURL); err == nil {
		base = parsed
	}
	if selector == "" {
		selector = "a[href]"
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		canonical, ok := scope.Canonicalize(href, base)
		if !ok || !scope.InScopeItem(canonical) {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	})
	return out
}
