// Package static fetches detail pages over plain HTTP via Colly, for
// catalogs whose detail pages render server-side. The listing surface still
// needs the browser; only the per-item fetch takes this fast path.
package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/crawlkit/harvester/internal/harvest"
)

// Config controls the static fetcher.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
	Title          string
	Price          string
	Description    string
}

// Fetcher implements harvest.DetailFetcher over a Colly collector.
type Fetcher struct {
	base   *colly.Collector
	cfg    Config
	logger *zap.Logger
}

// New constructs a configured Colly-based fetcher.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.Title == "" {
		return nil, fmt.Errorf("title selector is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &Fetcher{base: base, cfg: cfg, logger: logger}, nil
}

type fetchResult struct {
	body     []byte
	finalURL string
	err      error
}

// FetchOnce retrieves rawURL once and extracts the record fields.
func (f *Fetcher) FetchOnce(ctx context.Context, rawURL string) (harvest.Detail, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{
			body:     append([]byte{}, r.Body...),
			finalURL: r.Request.URL.String(),
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return harvest.Detail{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return harvest.Detail{}, err
		}
		if res.err != nil {
			return harvest.Detail{}, fmt.Errorf("fetch %s: %w", rawURL, res.err)
		}
		return f.extract(rawURL, res)
	default:
		return harvest.Detail{}, errors.New("colly fetch produced no result")
	}
}

func (f *Fetcher) extract(rawURL string, res fetchResult) (harvest.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return harvest.Detail{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	title := harvest.CollapseWhitespace(doc.Find(f.cfg.Title).First().Text())
	if title == "" {
		return harvest.Detail{}, fmt.Errorf("%s: %w", rawURL, harvest.ErrEmptyTitle)
	}

	detail := harvest.Detail{
		FinalURL: res.finalURL,
		Title:    title,
	}
	if f.cfg.Price != "" {
		detail.Price = harvest.CollapseWhitespace(doc.Find(f.cfg.Price).First().Text())
	}
	if f.cfg.Description != "" {
		detail.Description = harvest.CollapseWhitespace(doc.Find(f.cfg.Description).First().Text())
	}
	return detail, nil
}
