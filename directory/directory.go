// Package directory retrieves random tool listings from the Futurepedia
// directory and parses their detail pages into a fixed record.
package directory

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/cnosuke/mcp-crawl/fetcher"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cnosuke/mcp-crawl/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	defaultSearchURL   = "https://www.futurepedia.io/api/search"
	defaultToolBaseURL = "https://www.futurepedia.io/tool/"
	defaultTimeout     = 20 * time.Second
	defaultMaxCount    = 10
)

type Config struct {
	SearchURL   string
	ToolBaseURL string
	Timeout     time.Duration
	MaxCount    int
}

// Listing is the summary the search API returns for one tool. Its fields
// back-fill whatever the detail page lacks.
type Listing struct {
	Slug             string
	Name             string
	ShortDescription string
	WebsiteURL       string
}

type searchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
	Sort  string `json:"sort"`
}

// Client talks to the directory through a Fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	cfg     Config
	pick    func(n int) int
}

func New(f fetcher.Fetcher, cfg Config) *Client {
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultSearchURL
	}
	if cfg.ToolBaseURL == "" {
		cfg.ToolBaseURL = defaultToolBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = defaultMaxCount
	}
	return &Client{fetcher: f, cfg: cfg, pick: rand.IntN}
}

// RandomTool fetches one random tool with its detail page fields.
func (c *Client) RandomTool(ctx context.Context) (*types.DirectoryTool, error) {
	listing, err := c.randomListing(ctx)
	if err != nil {
		return nil, err
	}

	toolURL := c.cfg.ToolBaseURL + url.PathEscape(listing.Slug)
	res, err := c.fetcher.Fetch(ctx, fetcher.Request{Target: toolURL, Timeout: c.cfg.Timeout})
	if err != nil {
		return nil, err
	}

	return ParseToolPage(res.Body, res.ContentType, listing, toolURL)
}

// RandomTools fetches count random tools one after another. count is
// clamped to 1..MaxCount; the first failure fails the call.
func (c *Client) RandomTools(ctx context.Context, count int) ([]types.DirectoryTool, error) {
	count = max(1, min(c.cfg.MaxCount, count))

	tools := make([]types.DirectoryTool, 0, count)
	for i := 0; i < count; i++ {
		tool, err := c.RandomTool(ctx)
		if err != nil {
			return nil, err
		}
		tools = append(tools, *tool)
	}

	zap.S().Infow("fetched random directory tools", "count", len(tools))
	return tools, nil
}

func (c *Client) randomListing(ctx context.Context) (Listing, error) {
	payload, err := json.Marshal(searchRequest{Query: "", Page: 1, Sort: "new"})
	if err != nil {
		return Listing{}, ierrors.WithCause(ierrors.KindInternal, err, "cannot encode search request")
	}

	res, err := c.fetcher.PostJSON(ctx, fetcher.Request{Target: c.cfg.SearchURL, Timeout: c.cfg.Timeout}, payload)
	if err != nil {
		return Listing{}, err
	}
	if !gjson.ValidBytes(res.Body) {
		return Listing{}, ierrors.New(ierrors.KindUnparseableDocument, "search response is not valid JSON")
	}

	items := gjson.GetBytes(res.Body, "data").Array()
	if len(items) == 0 {
		return Listing{}, ierrors.New(ierrors.KindUnparseableDocument, "search returned no items")
	}

	item := items[c.pick(len(items))]

	var slug string
	switch s := item.Get("slug"); {
	case s.IsObject():
		slug = s.Get("current").String()
	case s.Type == gjson.String:
		slug = s.String()
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Listing{}, ierrors.New(ierrors.KindUnparseableDocument, "search item has no slug")
	}

	listing := Listing{
		Slug:             slug,
		Name:             strings.TrimSpace(item.Get("toolName").String()),
		ShortDescription: strings.TrimSpace(item.Get("toolShortDescription").String()),
		WebsiteURL:       strings.TrimSpace(item.Get("websiteUrl").String()),
	}
	zap.S().Debugw("picked directory listing", "slug", listing.Slug, "candidates", len(items))
	return listing, nil
}
