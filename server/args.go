package server

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/crawler"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// errorResult wraps a failure as a JSON descriptor inside an MCP error
// result so the assistant always receives well-formed JSON.
func errorResult(tool string, err error) *mcp.CallToolResult {
	d := ierrors.Describe(err)
	zap.S().Warnw("tool call failed",
		"tool", tool,
		"kind", d.Kind,
		"error", err)

	payload, mErr := json.Marshal(map[string]*ierrors.Descriptor{"error": d})
	if mErr != nil {
		return mcp.NewToolResultError(string(d.Kind) + ": " + d.Message)
	}
	return mcp.NewToolResultError(string(payload))
}

// jsonResult marshals v as the text content of a successful result.
func jsonResult(tool string, v any) *mcp.CallToolResult {
	payload, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response to JSON", "tool", tool, "error", err)
		return errorResult(tool, ierrors.WithCause(ierrors.KindInternal, err, "failed to encode result"))
	}
	return mcp.NewToolResultText(string(payload))
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", ierrors.InvalidInput("%s must be a string", name)
	}
	return strings.TrimSpace(s), nil
}

func boolArg(args map[string]interface{}, name string) (bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, ierrors.InvalidInput("%s must be a boolean", name)
	}
	return b, nil
}

// numberArg returns the numeric argument and whether it was supplied.
func numberArg(args map[string]interface{}, name string) (float64, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false, ierrors.InvalidInput("%s must be a number", name)
		}
		n = f
	default:
		return 0, false, ierrors.InvalidInput("%s must be a number", name)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, ierrors.InvalidInput("%s must be a finite number", name)
	}
	return n, true, nil
}

// positiveIntArg returns 0 when the argument is absent so callers fall back
// to their defaults. A supplied value must be a positive whole number.
func positiveIntArg(args map[string]interface{}, name string) (int, error) {
	n, ok, err := numberArg(args, name)
	if err != nil || !ok {
		return 0, err
	}
	if n <= 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, ierrors.InvalidInput("%s must be a positive integer, got %v", name, n)
	}
	return int(n), nil
}

func timeoutArg(args map[string]interface{}, defaultSec int) (time.Duration, error) {
	n, ok, err := numberArg(args, "timeout_sec")
	if err != nil {
		return 0, err
	}
	if !ok {
		return time.Duration(defaultSec) * time.Second, nil
	}
	if n <= 0 {
		return 0, ierrors.InvalidInput("timeout_sec must be positive, got %v", n)
	}
	if n > 3600 {
		return 0, ierrors.InvalidInput("timeout_sec must be at most 3600, got %v", n)
	}
	d := time.Duration(n * float64(time.Second))
	if d < time.Millisecond {
		// A zero Duration would mean the configured default downstream.
		return 0, ierrors.InvalidInput("timeout_sec must be at least 0.001, got %v", n)
	}
	return d, nil
}

// crawlOptions reads the arguments shared by the crawl tools.
func crawlOptions(args map[string]interface{}, cfg *config.Config) (crawler.Options, error) {
	var (
		opts crawler.Options
		err  error
	)
	if opts.Timeout, err = timeoutArg(args, cfg.Crawl.Timeout); err != nil {
		return opts, err
	}
	if opts.Proxy, err = stringArg(args, "proxy"); err != nil {
		return opts, err
	}
	if opts.Readable, err = boolArg(args, "readable"); err != nil {
		return opts, err
	}
	if opts.Markdown, err = boolArg(args, "markdown"); err != nil {
		return opts, err
	}
	if opts.MaxLinks, err = positiveIntArg(args, "max_links"); err != nil {
		return opts, err
	}
	return opts, nil
}

func withTimeoutArg() mcp.ToolOption {
	return mcp.WithNumber("timeout_sec",
		mcp.Description("Per-request timeout in seconds (default from config, 30)"),
	)
}

func withProxyArg() mcp.ToolOption {
	return mcp.WithString("proxy",
		mcp.Description("Proxy URL for this call; overrides PROXY_URL"),
	)
}
