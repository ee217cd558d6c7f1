package document

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"golang.org/x/net/html/charset"
)

// rootElement returns the local name of the first XML element in body.
func rootElement(body []byte) (string, error) {
	dec := newXMLDecoder(body)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func newXMLDecoder(body []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

func isSitemapRoot(name string) bool {
	return name == "urlset" || name == "sitemapindex"
}

// IsSitemap reports whether body is XML rooted at <urlset> or <sitemapindex>.
func IsSitemap(body []byte) bool {
	name, err := rootElement(body)
	return err == nil && isSitemapRoot(name)
}

// ParseSitemap returns the page-level <loc> values of a urlset or
// sitemapindex in document order, deduplicated and truncated to limit
// (zero or less keeps all). Nested sitemaps are not fetched.
func ParseSitemap(body []byte, limit int) (*Document, error) {
	dec := newXMLDecoder(body)

	var (
		root   string
		depth  int
		inLoc  bool
		loc    strings.Builder
		urls   []string
		seen   = make(map[string]struct{})
		errBad = func(err error) error {
			return ierrors.WithCause(ierrors.KindInvalidSitemap, err, "malformed sitemap XML")
		}
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errBad(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				root = t.Name.Local
				if !isSitemapRoot(root) {
					return nil, ierrors.New(ierrors.KindInvalidSitemap, "root element <%s> is not urlset or sitemapindex", root)
				}
			}
			// <urlset><url><loc>, <sitemapindex><sitemap><loc> and bare
			// <loc> children of the root. Deeper ones belong to extensions
			// such as image:loc.
			if (depth == 2 || depth == 3) && t.Name.Local == "loc" {
				inLoc = true
				loc.Reset()
			}
		case xml.CharData:
			if inLoc {
				loc.Write(t)
			}
		case xml.EndElement:
			if inLoc && t.Name.Local == "loc" {
				inLoc = false
				if u := strings.TrimSpace(loc.String()); u != "" {
					if _, dup := seen[u]; !dup {
						seen[u] = struct{}{}
						urls = append(urls, u)
					}
				}
			}
			depth--
		}
	}

	if root == "" {
		return nil, ierrors.New(ierrors.KindInvalidSitemap, "empty sitemap document")
	}

	total := len(urls)
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	if urls == nil {
		urls = []string{}
	}

	return &Document{
		Kind:   KindSitemap,
		Format: FormatSitemap,
		URLs:   urls,
		Total:  total,
		Index:  root == "sitemapindex",
	}, nil
}
