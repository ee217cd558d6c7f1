package server

import (
	"context"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	"github.com/cnosuke/mcp-crawl/extractor"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const schemaDescription = `Extraction schema as a JSON object (or a string containing one). Each field maps to a rule
{"selector": "css", "mode": "text|attribute|list-text|list-attribute", "attribute": "href", "required": false}.
Shorthands: "field": "h1" (text) and "field": [".item"] (list-text).`

// RegisterExtractStructuredTool - Register the extract_structured tool
func RegisterExtractStructuredTool(mcpServer *server.MCPServer, c *crawler.Crawler, cfg *config.Config) error {
	zap.S().Debugw("registering extract_structured tool")

	tool := mcp.NewTool("extract_structured",
		mcp.WithDescription("Fetch an HTML page and extract fields with CSS selectors. Returns a mapping of every schema field to a string, a list of strings or null."),
		mcp.WithString("url",
			mcp.Description("http(s) URL of the page"),
			mcp.Required(),
		),
		mcp.WithString("schema_json",
			mcp.Description(schemaDescription),
			mcp.Required(),
		),
		withTimeoutArg(),
		withProxyArg(),
	)

	mcpServer.AddTool(tool, extractStructuredHandler(c, cfg))
	return nil
}

func extractStructuredHandler(c *crawler.Crawler, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		url, err := stringArg(args, "url")
		if err != nil {
			return errorResult("extract_structured", err), nil
		}
		// The schema is validated and compiled before anything is fetched.
		schema, err := extractor.ParseSchemaValue(args["schema_json"])
		if err != nil {
			return errorResult("extract_structured", err), nil
		}
		opts, err := crawlOptions(args, cfg)
		if err != nil {
			return errorResult("extract_structured", err), nil
		}

		zap.S().Infow("executing extract_structured",
			"url", url,
			"fields", schema.Names())

		result, err := c.ExtractStructured(ctx, url, schema, opts)
		if err != nil {
			return errorResult("extract_structured", err), nil
		}
		return jsonResult("extract_structured", result), nil
	}
}
