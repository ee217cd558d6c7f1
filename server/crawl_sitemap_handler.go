package server

import (
	"context"
	"fmt"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterCrawlSitemapTool - Register the crawl_sitemap tool
func RegisterCrawlSitemapTool(mcpServer *server.MCPServer, c *crawler.Crawler, cfg *config.Config) error {
	zap.S().Debugw("registering crawl_sitemap tool")

	tool := mcp.NewTool("crawl_sitemap",
		mcp.WithDescription("Load a sitemap.xml (or sitemap index) and return its URLs in document order. Nested sitemaps are listed, not expanded."),
		mcp.WithString("sitemap_url",
			mcp.Description("http(s) URL of the sitemap"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of URLs to return (default %d, max %d)", cfg.Crawl.SitemapLimit, cfg.Crawl.MaxSitemapLimit)),
			mcp.DefaultNumber(float64(cfg.Crawl.SitemapLimit)),
		),
		withTimeoutArg(),
		withProxyArg(),
	)

	mcpServer.AddTool(tool, crawlSitemapHandler(c, cfg))
	return nil
}

func crawlSitemapHandler(c *crawler.Crawler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		sitemapURL, err := stringArg(args, "sitemap_url")
		if err != nil {
			return errorResult("crawl_sitemap", err), nil
		}
		limit, err := positiveIntArg(args, "limit")
		if err != nil {
			return errorResult("crawl_sitemap", err), nil
		}
		opts, err := crawlOptions(args, cfg)
		if err != nil {
			return errorResult("crawl_sitemap", err), nil
		}

		zap.S().Infow("executing crawl_sitemap", "url", sitemapURL, "limit", limit)

		resp, err := c.CrawlSitemap(ctx, sitemapURL, limit, opts)
		if err != nil {
			return errorResult("crawl_sitemap", err), nil
		}
		return jsonResult("crawl_sitemap", resp), nil
	}
}
