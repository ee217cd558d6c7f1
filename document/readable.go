package document

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var markdownPolicy = bluemonday.UGCPolicy()

// readableArticle narrows a page to its main article. ok is false when
// readability fails or finds no text, in which case callers keep the full text.
func readableArticle(decoded, pageURL string) (text, articleHTML string, ok bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(decoded), u)
	if err != nil {
		zap.S().Warnw("readability extraction failed, falling back to full text", "url", pageURL, "error", err)
		return "", "", false
	}

	text = collapseWhitespace(article.TextContent)
	if text == "" {
		return "", "", false
	}

	zap.S().Debugw("extracted main article with readability",
		"url", pageURL,
		"title", article.Title,
		"length", len(text))
	return text, article.Content, true
}

// toMarkdown sanitizes an HTML fragment and converts it to Markdown. On
// conversion failure the sanitized fragment's text is returned instead.
func toMarkdown(fragment, pageURL string) string {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}

	clean := markdownPolicy.Sanitize(fragment)
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(clean)
	if err != nil {
		zap.S().Warnw("failed to convert HTML to Markdown", "url", pageURL, "error", err)
		return collapseWhitespace(bluemonday.StrictPolicy().Sanitize(clean))
	}
	return strings.TrimSpace(markdown)
}
