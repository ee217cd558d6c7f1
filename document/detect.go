package document

import (
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
)

// Format identifies the on-the-wire type of a resource.
type Format string

const (
	FormatHTML    Format = "html"
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatText    Format = "text"
	FormatSitemap Format = "sitemap-xml"
)

var extensionFormats = map[string]Format{
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".xhtml":    FormatHTML,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatText,
	".markdown": FormatText,
	".log":      FormatText,
	".csv":      FormatText,
	".json":     FormatText,
	".xml":      FormatSitemap,
	".gz":       FormatSitemap, // only sitemap.xml.gz, see extensionOf
}

var contentTypeFormats = map[string]Format{
	"text/html":             FormatHTML,
	"application/xhtml+xml": FormatHTML,
	"application/pdf":       FormatPDF,
	"text/plain":            FormatText,
	"text/markdown":         FormatText,
	"text/x-markdown":       FormatText,
	"text/csv":              FormatText,
	"application/json":      FormatText,
	"application/xml":       FormatSitemap,
	"text/xml":              FormatSitemap,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
}

// Detect classifies a resource. A recognized extension on the target wins,
// then the content-type header; with neither, remote targets default to HTML
// and local ones fail with UnknownFormat. FormatSitemap is only a candidate:
// the root element is checked when parsing.
func Detect(target, contentType string, local bool) (Format, error) {
	if f, ok := extensionFormats[extensionOf(target, local)]; ok {
		return f, nil
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
		}
		if f, ok := contentTypeFormats[mediaType]; ok {
			return f, nil
		}
		return "", ierrors.New(ierrors.KindUnknownFormat, "unsupported content type %q", mediaType)
	}

	if local {
		return "", ierrors.New(ierrors.KindUnknownFormat, "cannot determine format of %s", target)
	}
	return FormatHTML, nil
}

// extensionOf returns the lower-cased extension of the target's path,
// ignoring query strings and fragments. ".gz" is reported only for
// "*.xml.gz" so that other archives stay unrecognized.
func extensionOf(target string, local bool) string {
	p := target
	if !local {
		if u, err := url.Parse(target); err == nil {
			p = u.Path
		}
		p = path.Base(p)
	} else {
		if u, err := url.Parse(target); err == nil && strings.EqualFold(u.Scheme, "file") {
			p = u.Path
		}
		p = filepath.Base(p)
	}
	p = strings.ToLower(p)

	ext := path.Ext(p)
	if ext == ".gz" && !strings.HasSuffix(p, ".xml.gz") {
		return ""
	}
	return ext
}
