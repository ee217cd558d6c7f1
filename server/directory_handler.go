package server

import (
	"context"
	"fmt"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/directory"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RegisterDirectoryTools - Register the futurepedia_random_tool and futurepedia_tools tools
func RegisterDirectoryTools(mcpServer *server.MCPServer, d *directory.Client, cfg *config.Config) error {
	zap.S().Debugw("registering directory tools", "max_count", cfg.Directory.MaxCount)

	randomTool := mcp.NewTool("futurepedia_random_tool",
		mcp.WithDescription("Fetch one random Futurepedia tool with structured fields (name, description, features, pros, cons, ...)."),
	)
	mcpServer.AddTool(randomTool, randomToolHandler(d))

	toolsTool := mcp.NewTool("futurepedia_tools",
		mcp.WithDescription(fmt.Sprintf("Fetch several random Futurepedia tools (1..%d).", cfg.Directory.MaxCount)),
		mcp.WithNumber("count",
			mcp.Description(fmt.Sprintf("Number of tools to fetch, clamped to 1..%d", cfg.Directory.MaxCount)),
			mcp.DefaultNumber(3),
		),
	)
	mcpServer.AddTool(toolsTool, randomToolsHandler(d))

	return nil
}

func randomToolHandler(d *directory.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		zap.S().Infow("executing futurepedia_random_tool")

		tool, err := d.RandomTool(ctx)
		if err != nil {
			return errorResult("futurepedia_random_tool", err), nil
		}
		return jsonResult("futurepedia_random_tool", tool), nil
	}
}

func randomToolsHandler(d *directory.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		count := 3
		n, ok, err := numberArg(request.GetArguments(), "count")
		if err != nil {
			return errorResult("futurepedia_tools", err), nil
		}
		if ok {
			count = int(n)
		}

		zap.S().Infow("executing futurepedia_tools", "count", count)

		tools, err := d.RandomTools(ctx, count)
		if err != nil {
			return errorResult("futurepedia_tools", err), nil
		}
		return jsonResult("futurepedia_tools", tools), nil
	}
}
