// Package document turns raw fetched bytes into a normalized, format-independent
// representation.
//
// A Document is a tagged variant: Kind says which payload fields are
// meaningful, Format records what the bytes were before parsing.
//
//	KindHTML    Title, Description, Text, Links (and Markdown on request)
//	KindText    Text (and Title when the format carries one, e.g. a DOCX heading)
//	KindSitemap URLs, Total, Index
package document

import (
	"bytes"
	"compress/gzip"
	"io"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"go.uber.org/zap"
)

// Kind tags the payload carried by a Document.
type Kind string

const (
	KindHTML    Kind = "html"
	KindText    Kind = "text"
	KindSitemap Kind = "sitemap"
)

// Document is the parsed form of one fetched resource.
type Document struct {
	Kind   Kind
	Format Format
	URL    string

	Title       string
	Description string
	Text        string
	Links       []string
	Markdown    string

	URLs  []string
	Total int
	Index bool
}

// Options tunes parsing. The zero value parses everything with defaults.
type Options struct {
	HTML HTMLOptions
	// SitemapLimit truncates sitemap URLs; zero or less keeps all of them.
	SitemapLimit int
	// StrictSitemap makes a non-sitemap XML root an InvalidSitemap error
	// instead of falling back to plain text.
	StrictSitemap bool
}

// Parse dispatches body to the parser for format.
func Parse(format Format, body []byte, contentType, sourceURL string, opts Options) (*Document, error) {
	var (
		doc *Document
		err error
	)

	switch format {
	case FormatHTML:
		doc, err = ParseHTML(body, contentType, sourceURL, opts.HTML)
	case FormatPDF:
		doc, err = ParsePDF(body)
	case FormatDOCX:
		doc, err = ParseDOCX(body)
	case FormatText:
		doc = ParseText(body, contentType)
	case FormatSitemap:
		body = maybeGunzip(body)
		if !opts.StrictSitemap && !IsSitemap(body) {
			zap.S().Debugw("xml document is not a sitemap, treating as text", "url", sourceURL)
			doc = ParseText(body, contentType)
			break
		}
		doc, err = ParseSitemap(body, opts.SitemapLimit)
	default:
		return nil, ierrors.New(ierrors.KindUnknownFormat, "no parser for format %q", format)
	}
	if err != nil {
		return nil, err
	}

	doc.URL = sourceURL
	return doc, nil
}

// maybeGunzip transparently inflates gzip payloads such as sitemap.xml.gz.
// Bodies that are not gzip, or fail to inflate, are returned unchanged.
func maybeGunzip(body []byte) []byte {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedBytes))
	if err != nil {
		return body
	}
	return out
}

const maxInflatedBytes = 64 << 20
