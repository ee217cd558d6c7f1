package document

import (
	"testing"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		local       bool
		expected    Format
		wantKind    ierrors.Kind
	}{
		{name: "pdf extension", target: "https://example.com/paper.pdf", expected: FormatPDF},
		{name: "extension beats content type", target: "https://example.com/paper.pdf?dl=1", contentType: "text/html", expected: FormatPDF},
		{name: "content type without extension", target: "https://example.com/page", contentType: "text/html; charset=utf-8", expected: FormatHTML},
		{name: "xml content type", target: "https://example.com/sitemap", contentType: "application/xml", expected: FormatSitemap},
		{name: "gzipped sitemap", target: "https://example.com/sitemap.xml.gz", expected: FormatSitemap},
		{name: "other gz falls back to content type", target: "https://example.com/a.tar.gz", contentType: "application/pdf", expected: FormatPDF},
		{name: "remote without hints defaults to html", target: "https://example.com/", expected: FormatHTML},
		{name: "unsupported content type", target: "https://example.com/logo", contentType: "image/png", wantKind: ierrors.KindUnknownFormat},
		{name: "markdown file", target: "/tmp/notes.MD", local: true, expected: FormatText},
		{name: "docx file url", target: "file:///tmp/report.docx", local: true, expected: FormatDOCX},
		{name: "local without extension", target: "/tmp/notes", local: true, wantKind: ierrors.KindUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.target, tt.contentType, tt.local)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, ierrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
