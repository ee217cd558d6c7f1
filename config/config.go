package config

import (
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/jinzhu/configor"
)

// Config - Application configuration
type Config struct {
	Log struct {
		Debug bool   `yaml:"debug" default:"false" env:"LOG_DEBUG"`
		Path  string `yaml:"path" default:"" env:"LOG_PATH"` // Empty means stderr
	} `yaml:"log"`

	Crawl struct {
		Timeout         int    `yaml:"timeout" default:"30" env:"CRAWL_TIMEOUT"` // Default per-call timeout in seconds
		UserAgent       string `yaml:"user_agent" default:"Mozilla/5.0 (compatible; mcp-crawl/0.2)" env:"CRAWL_USER_AGENT"`
		ProxyURL        string `yaml:"proxy_url" default:"" env:"PROXY_URL"`
		MaxURLs         int    `yaml:"max_urls" default:"20" env:"CRAWL_MAX_URLS"`       // Batch size cap
		MaxWorkers      int    `yaml:"max_workers" default:"20" env:"CRAWL_MAX_WORKERS"` // Concurrent items per batch
		MaxRedirects    int    `yaml:"max_redirects" default:"10" env:"CRAWL_MAX_REDIRECTS"`
		MaxBodyBytes    int64  `yaml:"max_body_bytes" default:"20971520" env:"CRAWL_MAX_BODY_BYTES"`
		MaxLinks        int    `yaml:"max_links" default:"0" env:"CRAWL_MAX_LINKS"` // 0 keeps every link
		SitemapLimit    int    `yaml:"sitemap_limit" default:"20" env:"CRAWL_SITEMAP_LIMIT"`
		MaxSitemapLimit int    `yaml:"max_sitemap_limit" default:"200" env:"CRAWL_MAX_SITEMAP_LIMIT"`
	} `yaml:"crawl"`

	Directory struct {
		SearchURL   string `yaml:"search_url" default:"https://www.futurepedia.io/api/search" env:"DIRECTORY_SEARCH_URL"`
		ToolBaseURL string `yaml:"tool_base_url" default:"https://www.futurepedia.io/tool/" env:"DIRECTORY_TOOL_BASE_URL"`
		Timeout     int    `yaml:"timeout" default:"20" env:"DIRECTORY_TIMEOUT"`
		MaxCount    int    `yaml:"max_count" default:"10" env:"DIRECTORY_MAX_COUNT"`
	} `yaml:"directory"`
}

// LoadConfig - Load configuration file. Missing files are tolerated so the
// server can run from defaults and environment alone.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	var files []string
	if path != "" {
		files = append(files, path)
	}
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, files...)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to load config %q", path)
	}
	return cfg, nil
}
