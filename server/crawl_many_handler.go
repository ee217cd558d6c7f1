package server

import (
	"context"
	"fmt"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterCrawlManyTool - Register the crawl_many tool
func RegisterCrawlManyTool(mcpServer *server.MCPServer, c *crawler.Crawler, cfg *config.Config) error {
	maxURLs := cfg.Crawl.MaxURLs
	zap.S().Debugw("registering crawl_many tool", "max_urls", maxURLs)

	tool := mcp.NewTool("crawl_many",
		mcp.WithDescription(fmt.Sprintf("Crawl up to %d URLs concurrently. Results keep the input order; each entry is either {success: page} or {error: {kind, message, input}}.", maxURLs)),
		mcp.WithArray("urls",
			mcp.Description(fmt.Sprintf("URLs to crawl (maximum %d)", maxURLs)),
			mcp.Required(),
			mcp.Items(map[string]any{"type": "string"}),
		),
		withTimeoutArg(),
		withProxyArg(),
		mcp.WithBoolean("readable",
			mcp.Description("Narrow each page's text to its main article"),
		),
		mcp.WithNumber("max_links",
			mcp.Description("Maximum number of links per page (default: all)"),
		),
	)

	mcpServer.AddTool(tool, crawlManyHandler(c, cfg))
	return nil
}

func crawlManyHandler(c *crawler.Crawler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		urls, err := stringSliceArg(args, "urls")
		if err != nil {
			return errorResult("crawl_many", err), nil
		}
		opts, err := crawlOptions(args, cfg)
		if err != nil {
			return errorResult("crawl_many", err), nil
		}

		zap.S().Debugw("executing crawl_many",
			"urls_count", len(urls),
			"timeout", opts.Timeout)

		resp, err := c.CrawlMany(ctx, urls, opts)
		if err != nil {
			return errorResult("crawl_many", err), nil
		}
		return jsonResult("crawl_many", resp), nil
	}
}

func stringSliceArg(args map[string]interface{}, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, ierrors.InvalidInput("%s is required", name)
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ierrors.InvalidInput("%s[%d] must be a string", name, i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, ierrors.InvalidInput("%s must be an array of strings", name)
	}
}
