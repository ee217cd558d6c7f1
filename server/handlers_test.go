package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/fetcher"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cnosuke/mcp-crawl/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test fixtures ---

const testPage = `<html><head><title>T</title></head><body><script>var secretToken=1</script><p>Hello</p>
<h1 class="name">Widget</h1><a class="buy" href="/buy">Buy</a></body></html>`

const testSitemap = `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>a</loc></url><url><loc>b</loc></url><url><loc>c</loc></url></urlset>`

type testServer struct {
	*httptest.Server
	hits atomic.Int64
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(testSitemap))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"slug":"widget","toolShortDescription":"A widget."}]}`))
	})
	mux.HandleFunc("/tool/widget", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Widget</h1><h2>Pros</h2><ul><li>Small</li></ul></body></html>`))
	})
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(ts *testServer) *config.Config {
	cfg := &config.Config{}
	cfg.Crawl.Timeout = 5
	cfg.Crawl.UserAgent = "test-agent/1.0"
	cfg.Crawl.MaxURLs = 20
	cfg.Crawl.MaxWorkers = 4
	cfg.Crawl.SitemapLimit = 20
	cfg.Crawl.MaxSitemapLimit = 200
	cfg.Directory.SearchURL = ts.URL + "/api/search"
	cfg.Directory.ToolBaseURL = ts.URL + "/tool/"
	cfg.Directory.Timeout = 5
	cfg.Directory.MaxCount = 10
	return cfg
}

func newTestFetcher(t *testing.T, cfg *config.Config) fetcher.Fetcher {
	t.Helper()
	f, err := fetcher.NewHTTPFetcher(&fetcher.Config{UserAgent: cfg.Crawl.UserAgent})
	require.NoError(t, err)
	return f
}

func callTool(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err, "handlers report failures inside the result")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeSuccess(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), v))
}

func decodeError(t *testing.T, result *mcp.CallToolResult) ierrors.Descriptor {
	t.Helper()
	require.True(t, result.IsError)
	var payload struct {
		Error ierrors.Descriptor `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	return payload.Error
}

// --- crawl_url ---

func TestCrawlURLHandler(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlURLHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	var page types.Page
	decodeSuccess(t, callTool(t, handler, map[string]interface{}{"url": ts.URL + "/page"}), &page)

	assert.Equal(t, "T", page.Title)
	assert.Contains(t, page.Text, "Hello")
	assert.NotContains(t, page.Text, "secretToken")
	assert.Equal(t, []string{ts.URL + "/buy"}, page.Links)
}

func TestCrawlURLHandler_InvalidArguments(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlURLHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing url", args: map[string]interface{}{}},
		{name: "url not a string", args: map[string]interface{}{"url": 42.0}},
		{name: "zero timeout", args: map[string]interface{}{"url": ts.URL + "/page", "timeout_sec": 0.0}},
		{name: "negative timeout", args: map[string]interface{}{"url": ts.URL + "/page", "timeout_sec": -3.0}},
		{name: "timeout as text", args: map[string]interface{}{"url": ts.URL + "/page", "timeout_sec": "30"}},
		{name: "sub-millisecond timeout", args: map[string]interface{}{"url": ts.URL + "/page", "timeout_sec": 1e-10}},
		{name: "fractional max_links", args: map[string]interface{}{"url": ts.URL + "/page", "max_links": 2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decodeError(t, callTool(t, handler, tt.args))
			assert.Equal(t, ierrors.KindInvalidInput, d.Kind)
			assert.NotEmpty(t, d.Message)
		})
	}
	assert.Zero(t, ts.hits.Load(), "invalid arguments must not reach the network")
}

func TestCrawlURLHandler_DecodedRequest(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlURLHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	raw := `{"params": {"name": "crawl_url", "arguments": {"url": "` + ts.URL + `/page", "timeout_sec": 5, "max_links": 1}}}`
	var req mcp.CallToolRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	result, err := handler(context.Background(), req)
	require.NoError(t, err)

	var page types.Page
	decodeSuccess(t, result, &page)
	assert.Equal(t, "T", page.Title)
	assert.Len(t, page.Links, 1)
}

func TestCrawlURLHandler_NoArguments(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlURLHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	result, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	d := decodeError(t, result)
	assert.Equal(t, ierrors.KindInvalidInput, d.Kind)
	assert.Zero(t, ts.hits.Load())
}

func TestTimeoutArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    time.Duration
		wantErr bool
	}{
		{name: "absent uses default", args: map[string]interface{}{}, want: 30 * time.Second},
		{name: "whole seconds", args: map[string]interface{}{"timeout_sec": 5.0}, want: 5 * time.Second},
		{name: "fraction", args: map[string]interface{}{"timeout_sec": 0.25}, want: 250 * time.Millisecond},
		{name: "one millisecond", args: map[string]interface{}{"timeout_sec": 0.001}, want: time.Millisecond},
		{name: "below a millisecond", args: map[string]interface{}{"timeout_sec": 1e-10}, wantErr: true},
		{name: "zero", args: map[string]interface{}{"timeout_sec": 0.0}, wantErr: true},
		{name: "too long", args: map[string]interface{}{"timeout_sec": 3601.0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := timeoutArg(tt.args, 30)
			if tt.wantErr {
				assert.Equal(t, ierrors.KindInvalidInput, ierrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCrawlURLHandler_HTTPStatus(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlURLHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	d := decodeError(t, callTool(t, handler, map[string]interface{}{"url": ts.URL + "/missing"}))

	assert.Equal(t, ierrors.KindHTTPStatus, d.Kind)
	assert.Equal(t, http.StatusNotFound, d.StatusCode)
}

// --- crawl_many ---

func TestCrawlManyHandler(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlManyHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	var resp types.BatchResponse
	decodeSuccess(t, callTool(t, handler, map[string]interface{}{
		"urls": []interface{}{ts.URL + "/page", ts.URL + "/missing", ts.URL + "/sitemap.xml"},
	}), &resp)

	require.Len(t, resp.Results, 3)
	require.NotNil(t, resp.Results[0].Success)
	assert.Equal(t, "T", resp.Results[0].Success.Title)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, ierrors.KindHTTPStatus, resp.Results[1].Error.Kind)
	assert.Equal(t, ts.URL+"/missing", resp.Results[1].Error.Input)
	require.NotNil(t, resp.Results[2].Success)
	assert.Equal(t, []string{"a", "b", "c"}, resp.Results[2].Success.Links)
}

func TestCrawlManyHandler_Rejections(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlManyHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	urls := make([]interface{}, 21)
	for i := range urls {
		urls[i] = ts.URL + "/page"
	}
	d := decodeError(t, callTool(t, handler, map[string]interface{}{"urls": urls}))
	assert.Equal(t, ierrors.KindBatchTooLarge, d.Kind)

	d = decodeError(t, callTool(t, handler, map[string]interface{}{"urls": "not-a-list"}))
	assert.Equal(t, ierrors.KindInvalidInput, d.Kind)

	d = decodeError(t, callTool(t, handler, map[string]interface{}{"urls": []interface{}{}}))
	assert.Equal(t, ierrors.KindInvalidInput, d.Kind)

	d = decodeError(t, callTool(t, handler, map[string]interface{}{"urls": []interface{}{ts.URL, 7.0}}))
	assert.Equal(t, ierrors.KindInvalidInput, d.Kind)

	assert.Zero(t, ts.hits.Load())
}

// --- crawl_sitemap ---

func TestCrawlSitemapHandler(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlSitemapHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	var resp types.SitemapResponse
	decodeSuccess(t, callTool(t, handler, map[string]interface{}{"sitemap_url": ts.URL + "/sitemap.xml", "limit": 2.0}), &resp)
	assert.Equal(t, []string{"a", "b"}, resp.URLs)
	assert.Equal(t, 3, resp.TotalURLs)

	for _, limit := range []interface{}{0.0, -1.0, 1.5} {
		d := decodeError(t, callTool(t, handler, map[string]interface{}{"sitemap_url": ts.URL + "/sitemap.xml", "limit": limit}))
		assert.Equal(t, ierrors.KindInvalidInput, d.Kind, "limit %v", limit)
	}

	d := decodeError(t, callTool(t, handler, map[string]interface{}{"sitemap_url": ts.URL + "/page"}))
	assert.Equal(t, ierrors.KindInvalidSitemap, d.Kind)
}

// --- crawl_file ---

func TestCrawlFileHandler(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := crawlFileHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("local notes"), 0o644))

	var resp types.FileResponse
	decodeSuccess(t, callTool(t, handler, map[string]interface{}{"source": path}), &resp)
	assert.Equal(t, "text", resp.Format)
	assert.Equal(t, "local notes", resp.Text)
	assert.Equal(t, 11, resp.TextLength)

	d := decodeError(t, callTool(t, handler, map[string]interface{}{"source": ""}))
	assert.Equal(t, ierrors.KindInvalidInput, d.Kind)
}

// --- extract_structured ---

func TestExtractStructuredHandler(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := extractStructuredHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	t.Run("schema as string", func(t *testing.T) {
		var fields map[string]any
		decodeSuccess(t, callTool(t, handler, map[string]interface{}{
			"url":         ts.URL + "/page",
			"schema_json": `{"name": ".name", "buy": {"selector": "a.buy", "mode": "attribute", "attribute": "href"}, "price": ".price"}`,
		}), &fields)
		assert.Equal(t, map[string]any{"name": "Widget", "buy": "/buy", "price": nil}, fields)
	})

	t.Run("schema as object", func(t *testing.T) {
		var fields map[string]any
		decodeSuccess(t, callTool(t, handler, map[string]interface{}{
			"url":         ts.URL + "/page",
			"schema_json": map[string]interface{}{"paragraphs": []interface{}{"p"}},
		}), &fields)
		assert.Equal(t, map[string]any{"paragraphs": []any{"Hello"}}, fields)
	})

	t.Run("required field missing", func(t *testing.T) {
		d := decodeError(t, callTool(t, handler, map[string]interface{}{
			"url":         ts.URL + "/page",
			"schema_json": `{"name": ".name", "sku": {"selector": ".sku", "required": true}}`,
		}))
		assert.Equal(t, ierrors.KindRequiredFieldMissing, d.Kind)
		assert.Equal(t, "sku", d.Field)
	})
}

func TestExtractStructuredHandler_SchemaRejectedBeforeFetch(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	handler := extractStructuredHandler(NewCrawler(newTestFetcher(t, cfg), cfg), cfg)

	tests := []struct {
		name     string
		schema   interface{}
		wantKind ierrors.Kind
	}{
		{name: "invalid selector", schema: `{"a": "div[["}`, wantKind: ierrors.KindInvalidSelector},
		{name: "malformed json", schema: `{"a": `, wantKind: ierrors.KindInvalidInput},
		{name: "missing", schema: nil, wantKind: ierrors.KindInvalidInput},
		{name: "bad mode", schema: `{"a": {"selector": "p", "mode": "xpath"}}`, wantKind: ierrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decodeError(t, callTool(t, handler, map[string]interface{}{
				"url":         ts.URL + "/page",
				"schema_json": tt.schema,
			}))
			assert.Equal(t, tt.wantKind, d.Kind)
		})
	}
	assert.Zero(t, ts.hits.Load())
}

// --- directory ---

func TestDirectoryHandlers(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	d := NewDirectoryClient(newTestFetcher(t, cfg), cfg)

	var tool types.DirectoryTool
	decodeSuccess(t, callTool(t, randomToolHandler(d), nil), &tool)
	assert.Equal(t, "Widget", tool.Name)
	assert.Equal(t, "A widget.", tool.Description)
	assert.Equal(t, []string{"Small"}, tool.Pros)

	var tools []types.DirectoryTool
	decodeSuccess(t, callTool(t, randomToolsHandler(d), map[string]interface{}{"count": 2.0}), &tools)
	assert.Len(t, tools, 2)

	errResult := callTool(t, randomToolsHandler(d), map[string]interface{}{"count": "two"})
	assert.Equal(t, ierrors.KindInvalidInput, decodeError(t, errResult).Kind)
}

// --- registration ---

func TestRegisterAllTools(t *testing.T) {
	ts := startTestServer(t)
	cfg := testConfig(ts)
	f := newTestFetcher(t, cfg)
	mcpServer := server.NewMCPServer("mcp-crawl-test", "0.0.0")

	err := RegisterAllTools(mcpServer, NewCrawler(f, cfg), NewDirectoryClient(f, cfg), cfg)

	assert.NoError(t, err)
}
