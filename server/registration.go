package server

import (
	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/cnosuke/mcp-crawl/directory"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterAllTools - Register all tools with the server
func RegisterAllTools(mcpServer *server.MCPServer, c *crawler.Crawler, d *directory.Client, cfg *config.Config) error {
	registrations := []func() error{
		func() error { return RegisterCrawlURLTool(mcpServer, c, cfg) },
		func() error { return RegisterCrawlManyTool(mcpServer, c, cfg) },
		func() error { return RegisterCrawlSitemapTool(mcpServer, c, cfg) },
		func() error { return RegisterCrawlFileTool(mcpServer, c, cfg) },
		func() error { return RegisterExtractStructuredTool(mcpServer, c, cfg) },
		func() error { return RegisterDirectoryTools(mcpServer, d, cfg) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
