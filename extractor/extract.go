package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cnosuke/mcp-crawl/document"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
)

// Result maps every schema field to a string, a []string or nil.
type Result map[string]any

// Extract evaluates schema against doc. Every field appears in the result.
// List modes skip empty values. A required field whose selector matches no
// element fails the whole extraction and no partial result is returned.
func Extract(doc *goquery.Document, schema *Schema) (Result, error) {
	if schema == nil || len(schema.Fields) == 0 {
		return nil, ierrors.InvalidInput("schema has no fields")
	}

	out := make(Result, len(schema.Fields))
	for _, f := range schema.Fields {
		matches := doc.FindMatcher(f.matcher)
		if matches.Length() == 0 && f.Rule.Required {
			return nil, ierrors.RequiredFieldMissing(f.Name)
		}

		var value any
		switch f.Rule.Mode {
		case ModeText:
			if matches.Length() > 0 {
				value = document.SelectionText(matches.First())
			}
		case ModeAttribute:
			// Only the first match counts, even when it lacks the attribute.
			if v, ok := matches.First().Attr(f.Rule.Attribute); ok {
				value = strings.TrimSpace(v)
			}
		case ModeListText:
			values := []string{}
			matches.Each(func(_ int, s *goquery.Selection) {
				if text := document.SelectionText(s); text != "" {
					values = append(values, text)
				}
			})
			value = values
		case ModeListAttribute:
			values := []string{}
			matches.Each(func(_ int, s *goquery.Selection) {
				if v := strings.TrimSpace(s.AttrOr(f.Rule.Attribute, "")); v != "" {
					values = append(values, v)
				}
			})
			value = values
		}

		out[f.Name] = value
	}
	return out, nil
}
