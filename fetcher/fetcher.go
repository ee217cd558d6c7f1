package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	defaultMaxRedirects = 10
	defaultMaxBodyBytes = 20 << 20
	acceptHeader        = "application/json,text/html;q=0.9,*/*;q=0.8"
)

var errTooManyRedirects = errors.New("too many redirects")

type Config struct {
	UserAgent    string
	ProxyURL     string
	MaxRedirects int
	MaxBodyBytes int64
}

// Request describes a single fetch.
type Request struct {
	Target  string        // http(s) URL or local filesystem path
	Timeout time.Duration // hard deadline for the whole call, must be positive
	Proxy   string        // overrides the configured proxy when set
}

// Result is the raw payload of a successful fetch.
type Result struct {
	Body        []byte
	ContentType string
	URL         string // final URL after redirects, or the local path
	OriginalURL string // set only if a redirect occurred
	StatusCode  int
	Local       bool
}

// Fetcher defines the interface for retrieving raw documents.
type Fetcher interface {
	// Fetch performs a GET (or local file read) bounded by req.Timeout.
	// Non-2xx responses, exhausted redirects and oversized bodies are
	// returned as classified errors, never as partial results.
	Fetch(ctx context.Context, req Request) (*Result, error)

	// PostJSON sends payload as a JSON POST body with the same guarantees as Fetch.
	PostJSON(ctx context.Context, req Request, payload []byte) (*Result, error)
}

// httpFetcher implements the Fetcher interface using HTTP and the local filesystem.
type httpFetcher struct {
	transport    *http.Transport
	userAgent    string
	maxRedirects int
	maxBodyBytes int64
}

// NewHTTPFetcher creates a new httpFetcher.
func NewHTTPFetcher(cfg *Config) (Fetcher, error) {
	zap.S().Infow("creating new HTTP fetcher",
		"user_agent", cfg.UserAgent,
		"proxy", cfg.ProxyURL != "",
		"max_redirects", cfg.MaxRedirects,
		"max_body_bytes", cfg.MaxBodyBytes)

	transport, err := newTransport(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	f := &httpFetcher{
		transport:    transport,
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if f.maxRedirects <= 0 {
		f.maxRedirects = defaultMaxRedirects
	}
	if f.maxBodyBytes <= 0 {
		f.maxBodyBytes = defaultMaxBodyBytes
	}
	return f, nil
}

func newTransport(proxy string) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if proxy == "" {
		t.Proxy = nil
		return t, nil
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return nil, ierrors.InvalidInput("invalid proxy URL %q", proxy)
	}
	t.Proxy = http.ProxyURL(u)
	return t, nil
}

// IsRemote reports whether target is an http(s) URL. Paths without a scheme,
// file:// URLs and Windows drive paths are local. Other schemes are rejected.
func IsRemote(target string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return false, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return false, ierrors.InvalidInput("URL %q has no host", target)
		}
		return true, nil
	case "file":
		return false, nil
	default:
		// "notes:v1.txt" parses with a scheme but may be a relative file name.
		if _, statErr := os.Stat(target); statErr == nil {
			return false, nil
		}
		return false, ierrors.InvalidInput("unsupported URL scheme %q", u.Scheme)
	}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Target) == "" {
		return ierrors.InvalidInput("target is required")
	}
	if req.Timeout <= 0 {
		return ierrors.InvalidInput("timeout must be positive, got %s", req.Timeout)
	}
	return nil
}

// Fetch fetches raw content from a URL or a local path.
func (f *httpFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	remote, err := IsRemote(req.Target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	if !remote {
		return f.readFile(ctx, req.Target)
	}
	return f.do(ctx, req, http.MethodGet, nil)
}

// PostJSON posts a JSON payload to a remote URL.
func (f *httpFetcher) PostJSON(ctx context.Context, req Request, payload []byte) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	remote, err := IsRemote(req.Target)
	if err != nil {
		return nil, err
	}
	if !remote {
		return nil, ierrors.InvalidInput("POST requires an http(s) URL, got %q", req.Target)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()
	return f.do(ctx, req, http.MethodPost, payload)
}

func (f *httpFetcher) client(proxy string) (*http.Client, func(), error) {
	transport := f.transport
	release := func() {}
	if proxy != "" {
		t, err := newTransport(proxy)
		if err != nil {
			return nil, nil, err
		}
		transport = t
		release = t.CloseIdleConnections
	}

	maxRedirects := f.maxRedirects
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if r.URL.Scheme != "http" && r.URL.Scheme != "https" {
				return ierrors.New(ierrors.KindNetwork, "redirect to unsupported scheme %q", r.URL.Scheme)
			}
			return nil
		},
	}, release, nil
}

func (f *httpFetcher) do(ctx context.Context, r Request, method string, payload []byte) (*Result, error) {
	client, release, err := f.client(r.Proxy)
	if err != nil {
		return nil, err
	}
	defer release()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.Target, body)
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "failed to create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err, r.Target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		zap.S().Debugw("non-2xx response", "url", r.Target, "status", resp.StatusCode)
		return nil, ierrors.HTTPStatus(resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err, r.Target)
	}
	if int64(len(bodyBytes)) > f.maxBodyBytes {
		return nil, ierrors.New(ierrors.KindResponseTooLarge, "response body exceeds %d bytes", f.maxBodyBytes)
	}

	zap.S().Debugw(
		"response received",
		"url", r.Target,
		"method", method,
		"status", resp.StatusCode,
		"content-length", resp.ContentLength,
		"bytes", len(bodyBytes),
		"content_type", resp.Header.Get("Content-Type"),
		"elapsed", time.Since(start),
	)

	final := resp.Request.URL.String()
	originalURL := ""
	if final != req.URL.String() {
		originalURL = r.Target
	}

	return &Result{
		Body:        bodyBytes,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         final,
		OriginalURL: originalURL,
		StatusCode:  resp.StatusCode,
	}, nil
}

// classifyTransportError maps client errors to stable kinds. The deadline
// check comes first: a cancelled context surfaces through several wrappers.
func classifyTransportError(ctx context.Context, err error, target string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ierrors.WithCause(ierrors.KindTimeout, err, "request to %s timed out", target)
	}
	if errors.Is(err, errTooManyRedirects) {
		return ierrors.WithCause(ierrors.KindTooManyRedirects, err, "stopped after too many redirects")
	}
	var ce *ierrors.Error
	if errors.As(err, &ce) {
		return ce
	}
	switch ierrors.KindOf(err) {
	case ierrors.KindTimeout:
		return ierrors.WithCause(ierrors.KindTimeout, err, "request to %s timed out", target)
	default:
		return ierrors.WithCause(ierrors.KindNetwork, err, "request to %s failed", target)
	}
}

func (f *httpFetcher) readFile(ctx context.Context, target string) (*Result, error) {
	path := target
	if u, err := url.Parse(target); err == nil && strings.EqualFold(u.Scheme, "file") {
		path = u.Path
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierrors.InvalidInput("file not found: %s", target)
		}
		return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "cannot stat %s", target)
	}
	if info.IsDir() {
		return nil, ierrors.InvalidInput("%s is a directory", target)
	}
	if info.Size() > f.maxBodyBytes {
		return nil, ierrors.New(ierrors.KindResponseTooLarge, "file exceeds %d bytes", f.maxBodyBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, ierrors.WithCause(ierrors.KindTimeout, err, "reading %s timed out", target)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "cannot read %s", target)
	}

	zap.S().Debugw("local file read", "path", path, "bytes", len(data))

	return &Result{
		Body:  data,
		URL:   path,
		Local: true,
	}, nil
}
