package directory

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cnosuke/mcp-crawl/document"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cnosuke/mcp-crawl/types"
	"github.com/dyatlov/go-opengraph/opengraph"
)

const sectionHeadings = "h2, h3, h4"

// ParseToolPage maps a tool detail page onto a DirectoryTool. The listing
// fills in the name and description when the page has none; a page with no
// description at all fails with RequiredFieldMissing.
func ParseToolPage(body []byte, contentType string, listing Listing, pageURL string) (*types.DirectoryTool, error) {
	doc, err := document.LoadHTML(body, contentType)
	if err != nil {
		return nil, err
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		og = opengraph.NewOpenGraph()
	}

	name := firstNonEmpty(
		document.SelectionText(doc.Find("h1").First()),
		strings.TrimSpace(og.Title),
		listing.Name,
	)
	description := firstNonEmpty(
		strings.TrimSpace(og.Description),
		strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		listing.ShortDescription,
	)
	if description == "" {
		return nil, ierrors.RequiredFieldMissing("description")
	}

	var ogImage string
	if len(og.Images) > 0 && og.Images[0] != nil {
		ogImage = og.Images[0].URL
	}

	return &types.DirectoryTool{
		Name:        name,
		Description: description,
		URL:         pageURL,
		WebsiteURL:  listing.WebsiteURL,
		WhatIs:      sectionText(doc, "what is", false),
		KeyFeatures: sectionList(doc, "key features"),
		Pros:        sectionList(doc, "pros"),
		Cons:        sectionList(doc, "cons"),
		WhoUses:     sectionText(doc, "who is using", true),
		OGImage:     ogImage,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// headingFor calls accept for every section heading starting with prefix
// until accept returns false.
func headingFor(doc *goquery.Document, prefix string, accept func(*goquery.Selection) bool) {
	doc.Find(sectionHeadings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.HasPrefix(strings.ToLower(document.SelectionText(h)), prefix) {
			return true
		}
		return accept(h)
	})
}

func isHeading(s *goquery.Selection) bool {
	return s.Is(sectionHeadings)
}

func listItems(list *goquery.Selection) []string {
	items := []string{}
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := document.SelectionText(li); t != "" {
			items = append(items, t)
		}
	})
	return items
}

// sectionList returns the items of the first list that follows a matching
// heading before the next heading.
func sectionList(doc *goquery.Document, prefix string) []string {
	items := []string{}
	headingFor(doc, prefix, func(h *goquery.Selection) bool {
		found := false
		h.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			if isHeading(sib) {
				found = true
				return false
			}
			if sib.Is("ul, ol") {
				items = listItems(sib)
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return items
}

// sectionText joins the paragraphs (and, with lists, "; "-joined list items)
// between the first matching heading and the next heading.
func sectionText(doc *goquery.Document, prefix string, lists bool) string {
	var parts []string
	headingFor(doc, prefix, func(h *goquery.Selection) bool {
		h.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			switch {
			case isHeading(sib):
				return false
			case sib.Is("p"):
				if t := document.SelectionText(sib); t != "" {
					parts = append(parts, t)
				}
			case lists && sib.Is("ul, ol"):
				if items := listItems(sib); len(items) > 0 {
					parts = append(parts, strings.Join(items, "; "))
				}
			}
			return true
		})
		return false
	})
	return strings.Join(parts, " ")
}
