package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/cnosuke/mcp-crawl/directory"
	"github.com/cnosuke/mcp-crawl/fetcher"
	"github.com/cockroachdb/errors"
)

// Run - Execute the MCP server
func Run(cfg *config.Config, name string, version string, revision string) error {
	zap.S().Infow("starting MCP Crawl Server")

	// Format version string with revision if available
	versionString := version
	if revision != "" && revision != "xxx" {
		versionString = versionString + " (" + revision + ")"
	}

	zap.S().Debugw("creating HTTP Fetcher")
	httpFetcher, err := fetcher.NewHTTPFetcher(&fetcher.Config{
		UserAgent:    cfg.Crawl.UserAgent,
		ProxyURL:     cfg.Crawl.ProxyURL,
		MaxRedirects: cfg.Crawl.MaxRedirects,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	})
	if err != nil {
		zap.S().Errorw("failed to create HTTP Fetcher", "error", err)
		return err
	}

	c := NewCrawler(httpFetcher, cfg)
	d := NewDirectoryClient(httpFetcher, cfg)

	// Create custom hooks for error handling
	hooks := &server.Hooks{}
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		zap.S().Errorw("MCP error occurred",
			"id", id,
			"method", method,
			"error", err,
		)
	})

	zap.S().Debugw("creating MCP server",
		"name", name,
		"version", versionString,
	)
	mcpServer := server.NewMCPServer(
		name,
		versionString,
		server.WithHooks(hooks),
	)

	zap.S().Debugw("registering tools")
	if err := RegisterAllTools(mcpServer, c, d, cfg); err != nil {
		zap.S().Errorw("failed to register tools", "error", err)
		return err
	}

	// Start the server with stdio transport
	zap.S().Infow("starting MCP server")
	err = server.ServeStdio(mcpServer)
	if err != nil {
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	}

	// ServeStdio will block until the server is terminated
	zap.S().Infow("server shutting down")
	return nil
}

// NewCrawler - Build the crawler from configuration
func NewCrawler(f fetcher.Fetcher, cfg *config.Config) *crawler.Crawler {
	return crawler.New(f, crawler.Config{
		DefaultTimeout:  time.Duration(cfg.Crawl.Timeout) * time.Second,
		MaxURLs:         cfg.Crawl.MaxURLs,
		MaxWorkers:      cfg.Crawl.MaxWorkers,
		MaxLinks:        cfg.Crawl.MaxLinks,
		SitemapLimit:    cfg.Crawl.SitemapLimit,
		MaxSitemapLimit: cfg.Crawl.MaxSitemapLimit,
	})
}

// NewDirectoryClient - Build the directory client from configuration
func NewDirectoryClient(f fetcher.Fetcher, cfg *config.Config) *directory.Client {
	return directory.New(f, directory.Config{
		SearchURL:   cfg.Directory.SearchURL,
		ToolBaseURL: cfg.Directory.ToolBaseURL,
		Timeout:     time.Duration(cfg.Directory.Timeout) * time.Second,
		MaxCount:    cfg.Directory.MaxCount,
	})
}
