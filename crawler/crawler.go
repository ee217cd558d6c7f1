// Package crawler implements the crawl and extraction operations on top of
// the fetcher, document and extractor packages.
package crawler

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cnosuke/mcp-crawl/document"
	"github.com/cnosuke/mcp-crawl/extractor"
	"github.com/cnosuke/mcp-crawl/fetcher"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cnosuke/mcp-crawl/types"
	"go.uber.org/zap"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxURLs         = 20
	defaultSitemapLimit    = 20
	defaultMaxSitemapLimit = 200
)

// Config holds the limits shared by every call. It is never mutated after New.
type Config struct {
	DefaultTimeout  time.Duration
	MaxURLs         int
	MaxWorkers      int
	MaxLinks        int
	SitemapLimit    int
	MaxSitemapLimit int
}

// Options are the per-call knobs common to all operations.
type Options struct {
	Timeout  time.Duration // zero uses Config.DefaultTimeout
	Proxy    string        // overrides the configured proxy
	Readable bool
	Markdown bool
	MaxLinks int // zero uses Config.MaxLinks
}

// Crawler runs crawl operations. It holds no mutable state and is safe for
// concurrent use.
type Crawler struct {
	fetcher fetcher.Fetcher
	cfg     Config
}

// New creates a Crawler, filling unset limits with defaults.
func New(f fetcher.Fetcher, cfg Config) *Crawler {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = defaultMaxURLs
	}
	if cfg.MaxWorkers <= 0 || cfg.MaxWorkers > cfg.MaxURLs {
		cfg.MaxWorkers = cfg.MaxURLs
	}
	if cfg.MaxSitemapLimit <= 0 {
		cfg.MaxSitemapLimit = defaultMaxSitemapLimit
	}
	if cfg.SitemapLimit <= 0 {
		cfg.SitemapLimit = defaultSitemapLimit
	}
	if cfg.SitemapLimit > cfg.MaxSitemapLimit {
		cfg.SitemapLimit = cfg.MaxSitemapLimit
	}
	return &Crawler{fetcher: f, cfg: cfg}
}

func validateOptions(opts Options) error {
	if opts.Timeout < 0 {
		return ierrors.InvalidInput("timeout must be positive, got %s", opts.Timeout)
	}
	if opts.MaxLinks < 0 {
		return ierrors.InvalidInput("max_links must not be negative, got %d", opts.MaxLinks)
	}
	return nil
}

func (c *Crawler) request(target string, opts Options) (fetcher.Request, error) {
	if err := validateOptions(opts); err != nil {
		return fetcher.Request{}, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.cfg.DefaultTimeout
	}
	return fetcher.Request{Target: strings.TrimSpace(target), Timeout: timeout, Proxy: opts.Proxy}, nil
}

// remoteRequest validates that target is an http(s) URL.
func (c *Crawler) remoteRequest(target string, opts Options) (fetcher.Request, error) {
	req, err := c.request(target, opts)
	if err != nil {
		return req, err
	}
	if req.Target == "" {
		return req, ierrors.InvalidInput("url is required")
	}
	remote, err := fetcher.IsRemote(req.Target)
	if err != nil {
		return req, err
	}
	if !remote {
		return req, ierrors.InvalidInput("%q is not an http(s) URL", req.Target)
	}
	return req, nil
}

func (c *Crawler) maxLinks(opts Options) int {
	if opts.MaxLinks > 0 {
		return opts.MaxLinks
	}
	return c.cfg.MaxLinks
}

// CrawlURL fetches one page and returns its title, text and links. Non-HTML
// documents are parsed by format; a sitemap's entries are reported as links.
func (c *Crawler) CrawlURL(ctx context.Context, target string, opts Options) (*types.Page, error) {
	req, err := c.remoteRequest(target, opts)
	if err != nil {
		return nil, err
	}

	zap.S().Debugw("crawling url", "url", req.Target, "timeout", req.Timeout)

	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	format, err := document.Detect(res.URL, res.ContentType, false)
	if err != nil {
		return nil, err
	}

	limit := c.maxLinks(opts)
	doc, err := document.Parse(format, res.Body, res.ContentType, res.URL, document.Options{
		HTML: document.HTMLOptions{
			Readable: opts.Readable,
			Markdown: opts.Markdown,
			MaxLinks: limit,
		},
		SitemapLimit: limit,
	})
	if err != nil {
		return nil, err
	}

	page := &types.Page{
		URL:         req.Target,
		Kind:        string(doc.Kind),
		Format:      string(doc.Format),
		ContentType: res.ContentType,
		StatusCode:  res.StatusCode,
		Title:       doc.Title,
		Description: doc.Description,
		Text:        doc.Text,
		TextLength:  utf8.RuneCountInString(doc.Text),
		Links:       doc.Links,
		Markdown:    doc.Markdown,
	}
	if res.OriginalURL != "" {
		page.FinalURL = res.URL
	}
	if doc.Kind == document.KindSitemap {
		page.Links = doc.URLs
	}
	if page.Links == nil {
		page.Links = []string{}
	}
	return page, nil
}

// CrawlMany crawls every URL independently. Item failures are reported in
// their slot; only invalid batches fail the call.
func (c *Crawler) CrawlMany(ctx context.Context, urls []string, opts Options) (*types.BatchResponse, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	results, err := c.RunBatch(ctx, urls, func(ctx context.Context, target string) (*types.Page, error) {
		return c.CrawlURL(ctx, target, opts)
	})
	if err != nil {
		return nil, err
	}
	return &types.BatchResponse{Results: results}, nil
}

// CrawlSitemap lists the URLs of a sitemap in document order. limit zero
// uses the configured default; larger values are capped.
func (c *Crawler) CrawlSitemap(ctx context.Context, sitemapURL string, limit int, opts Options) (*types.SitemapResponse, error) {
	if limit < 0 {
		return nil, ierrors.InvalidInput("limit must be positive, got %d", limit)
	}
	if limit == 0 {
		limit = c.cfg.SitemapLimit
	}
	if limit > c.cfg.MaxSitemapLimit {
		zap.S().Debugw("capping sitemap limit", "requested", limit, "max", c.cfg.MaxSitemapLimit)
		limit = c.cfg.MaxSitemapLimit
	}

	req, err := c.remoteRequest(sitemapURL, opts)
	if err != nil {
		return nil, err
	}

	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(document.FormatSitemap, res.Body, res.ContentType, res.URL, document.Options{
		SitemapLimit:  limit,
		StrictSitemap: true,
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infow("parsed sitemap",
		"url", req.Target,
		"total", doc.Total,
		"returned", len(doc.URLs),
		"index", doc.Index)

	return &types.SitemapResponse{
		SitemapURL: req.Target,
		TotalURLs:  doc.Total,
		Index:      doc.Index,
		URLs:       doc.URLs,
	}, nil
}

// CrawlFile extracts text from a local path or a remote document.
func (c *Crawler) CrawlFile(ctx context.Context, source string, opts Options) (*types.FileResponse, error) {
	req, err := c.request(source, opts)
	if err != nil {
		return nil, err
	}
	if req.Target == "" {
		return nil, ierrors.InvalidInput("source is required")
	}

	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	detectTarget := res.URL
	if res.Local {
		detectTarget = req.Target
	}
	format, err := document.Detect(detectTarget, res.ContentType, res.Local)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(format, res.Body, res.ContentType, res.URL, document.Options{
		HTML: document.HTMLOptions{Readable: opts.Readable},
	})
	if err != nil {
		return nil, err
	}

	text := doc.Text
	if doc.Kind == document.KindSitemap {
		text = strings.Join(doc.URLs, "\n")
	}

	zap.S().Debugw("extracted file text",
		"source", req.Target,
		"format", format,
		"length", len(text))

	return &types.FileResponse{
		Source:     req.Target,
		Format:     string(doc.Format),
		Title:      doc.Title,
		Text:       text,
		TextLength: utf8.RuneCountInString(text),
	}, nil
}

// ExtractStructured fetches an HTML page and applies schema to it. The
// schema must already be parsed, so schema errors never cost a fetch.
func (c *Crawler) ExtractStructured(ctx context.Context, target string, schema *extractor.Schema, opts Options) (extractor.Result, error) {
	if schema == nil || len(schema.Fields) == 0 {
		return nil, ierrors.InvalidInput("schema has no fields")
	}
	req, err := c.remoteRequest(target, opts)
	if err != nil {
		return nil, err
	}

	res, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	format, err := document.Detect(res.URL, res.ContentType, false)
	if err != nil {
		return nil, err
	}
	if format != document.FormatHTML {
		return nil, ierrors.New(ierrors.KindUnknownFormat, "structured extraction needs an HTML page, got %s", format)
	}

	doc, err := document.LoadHTML(res.Body, res.ContentType)
	if err != nil {
		return nil, err
	}

	result, err := extractor.Extract(doc, schema)
	if err != nil {
		return nil, err
	}

	zap.S().Debugw("extracted structured fields", "url", req.Target, "fields", len(result))
	return result, nil
}
