package server

import (
	"context"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterCrawlURLTool - Register the crawl_url tool
func RegisterCrawlURLTool(mcpServer *server.MCPServer, c *crawler.Crawler, cfg *config.Config) error {
	zap.S().Debugw("registering crawl_url tool")

	tool := mcp.NewTool("crawl_url",
		mcp.WithDescription("Fetch a web page and return its title, description, visible text and links. PDF, DOCX, plain text and sitemap URLs are parsed by format."),
		mcp.WithString("url",
			mcp.Description("http(s) URL to crawl"),
			mcp.Required(),
		),
		withTimeoutArg(),
		withProxyArg(),
		mcp.WithBoolean("readable",
			mcp.Description("Narrow the text to the main article"),
		),
		mcp.WithBoolean("markdown",
			mcp.Description("Also return the content rendered as Markdown"),
		),
		mcp.WithNumber("max_links",
			mcp.Description("Maximum number of links to return (default: all)"),
		),
	)

	mcpServer.AddTool(tool, crawlURLHandler(c, cfg))
	return nil
}

func crawlURLHandler(c *crawler.Crawler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		url, err := stringArg(args, "url")
		if err != nil {
			return errorResult("crawl_url", err), nil
		}
		opts, err := crawlOptions(args, cfg)
		if err != nil {
			return errorResult("crawl_url", err), nil
		}

		zap.S().Infow("executing crawl_url",
			"url", url,
			"timeout", opts.Timeout,
			"readable", opts.Readable,
			"markdown", opts.Markdown)

		page, err := c.CrawlURL(ctx, url, opts)
		if err != nil {
			return errorResult("crawl_url", err), nil
		}
		return jsonResult("crawl_url", page), nil
	}
}
