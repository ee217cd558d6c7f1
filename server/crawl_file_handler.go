package server

import (
	"context"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterCrawlFileTool - Register the crawl_file tool
func RegisterCrawlFileTool(mcpServer *server.MCPServer, c *crawler.Crawler, cfg *config.Config) error {
	zap.S().Debugw("registering crawl_file tool")

	tool := mcp.NewTool("crawl_file",
		mcp.WithDescription("Extract text from a local file path or a URL (txt, md, html, pdf, docx, xml)."),
		mcp.WithString("source",
			mcp.Description("Local filesystem path, file:// URL or http(s) URL"),
			mcp.Required(),
		),
		withTimeoutArg(),
		withProxyArg(),
	)

	mcpServer.AddTool(tool, crawlFileHandler(c, cfg))
	return nil
}

func crawlFileHandler(c *crawler.Crawler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		source, err := stringArg(args, "source")
		if err != nil {
			return errorResult("crawl_file", err), nil
		}
		opts, err := crawlOptions(args, cfg)
		if err != nil {
			return errorResult("crawl_file", err), nil
		}

		zap.S().Infow("executing crawl_file", "source", source)

		resp, err := c.CrawlFile(ctx, source, opts)
		if err != nil {
			return errorResult("crawl_file", err), nil
		}
		return jsonResult("crawl_file", resp), nil
	}
}
