package document

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noiseSelector lists elements whose content is never visible page text.
const noiseSelector = "script, style, noscript, iframe, template"

// HTMLOptions controls optional HTML post-processing.
type HTMLOptions struct {
	// Readable narrows Text to the main article.
	Readable bool
	// Markdown additionally renders the content as Markdown.
	Markdown bool
	// MaxLinks caps the collected links; zero or less keeps all of them.
	MaxLinks int
}

// LoadHTML decodes body to UTF-8 and parses it into a goquery document.
func LoadHTML(body []byte, contentType string) (*goquery.Document, error) {
	return loadDecoded(decodeUTF8(body, contentType, true))
}

func loadDecoded(decoded string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(decoded))
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "malformed HTML")
	}
	return doc, nil
}

// ParseHTML extracts title, description, visible text and absolute links.
func ParseHTML(body []byte, contentType, pageURL string, opts HTMLOptions) (*Document, error) {
	decoded := decodeUTF8(body, contentType, true)
	doc, err := loadDecoded(decoded)
	if err != nil {
		return nil, err
	}

	out := &Document{
		Kind:        KindHTML,
		Format:      FormatHTML,
		Title:       pageTitle(doc),
		Description: pageDescription(doc, decoded),
		Links:       collectLinks(doc, pageURL, opts.MaxLinks),
	}

	doc.Find(noiseSelector).Remove()
	root := contentRoot(doc)
	out.Text = SelectionText(root)

	var content string
	if opts.Readable {
		if text, articleHTML, ok := readableArticle(decoded, pageURL); ok {
			out.Text = text
			content = articleHTML
		}
	}
	if opts.Markdown {
		if content == "" {
			content, _ = root.Html()
		}
		out.Markdown = toMarkdown(content, pageURL)
	}
	return out, nil
}

// contentRoot picks the first <main>, else the first <article>, else <body>,
// else the whole document.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if root := doc.Find(sel).First(); root.Length() > 0 {
			return root
		}
	}
	return doc.Selection
}

func pageTitle(doc *goquery.Document) string {
	if t := collapseWhitespace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return SelectionText(doc.Find("h1").First())
}

func pageDescription(doc *goquery.Document, decoded string) string {
	var desc string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(s.AttrOr("name", ""), "description") {
			desc = strings.TrimSpace(s.AttrOr("content", ""))
		}
		return desc == ""
	})
	if desc != "" {
		return desc
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(decoded)); err == nil {
		return strings.TrimSpace(og.Description)
	}
	return ""
}

// collectLinks resolves every <a href> against the page (or its <base href>),
// keeps http(s) targets only, drops fragments and deduplicates in order.
func collectLinks(doc *goquery.Document, pageURL string, limit int) []string {
	links := []string{}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return true
		}
		u.Fragment = ""
		u.RawFragment = ""
		abs := u.String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return limit <= 0 || len(links) < limit
	})
	return links
}

// SelectionText flattens the text of every node in sel, skipping
// script-like elements, and collapses whitespace.
func SelectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return collapseWhitespace(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template:
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}
