package types

import (
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
)

// Page - Parsed result of a single crawled URL
type Page struct {
	URL         string   `json:"url"`
	FinalURL    string   `json:"final_url,omitempty"` // Set only if a redirect occurred
	Kind        string   `json:"kind"`                // html, text or sitemap
	Format      string   `json:"format"`              // Detected format tag
	ContentType string   `json:"content_type,omitempty"`
	StatusCode  int      `json:"status_code,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Text        string   `json:"text"`
	TextLength  int      `json:"text_length"`
	Links       []string `json:"links"`
	Markdown    string   `json:"markdown,omitempty"`
}

// BatchItem - One slot of a batch response. Exactly one of Success or Error is set.
type BatchItem struct {
	Success *Page               `json:"success,omitempty"`
	Error   *ierrors.Descriptor `json:"error,omitempty"`
}

// BatchResponse - Ordered per-URL results, positionally aligned with the request
type BatchResponse struct {
	Results []BatchItem `json:"results"`
}

// SitemapResponse - URLs enumerated from a sitemap
type SitemapResponse struct {
	SitemapURL string   `json:"sitemap_url"`
	TotalURLs  int      `json:"total_urls"` // Count before truncation
	Index      bool     `json:"index"`      // True for a sitemapindex; entries are nested sitemaps
	URLs       []string `json:"urls"`
}

// FileResponse - Text extracted from a local file or remote document
type FileResponse struct {
	Source     string `json:"source"`
	Format     string `json:"format"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`
	TextLength int    `json:"text_length"`
}

// DirectoryTool - A tool listing parsed from the directory site
type DirectoryTool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	WebsiteURL  string   `json:"website_url"`
	WhatIs      string   `json:"what_is"`
	KeyFeatures []string `json:"key_features"`
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
	WhoUses     string   `json:"who_uses"`
	OGImage     string   `json:"og_image"`
}
