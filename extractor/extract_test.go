package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head>
<link rel="canonical" href="https://shop.example.com/widget">
</head><body>
<h1> Widget   Pro </h1>
<p class="price">$19</p>
<ul class="feature">
  <li>Fast</li>
  <li> </li>
  <li>Small <b>and</b> light</li>
</ul>
<a class="more">no href here</a>
<a class="more" href="/details">Details</a>
<img src="/a.png"><img alt="no src"><img src="/b.png">
<script>var price = "$0";</script>
</body></html>`

func loadDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func mustSchema(t *testing.T, raw string) *Schema {
	t.Helper()
	schema, err := ParseSchema([]byte(raw))
	require.NoError(t, err)
	return schema
}

func TestExtract_Modes(t *testing.T) {
	schema := mustSchema(t, `{
		"title": "h1",
		"price": ".price",
		"features": [".feature li"],
		"details": {"selector": "a.more", "mode": "attribute", "attribute": "href"},
		"images": {"selector": "img", "mode": "list-attribute", "attribute": "src"},
		"canonical": {"selector": "link[rel=canonical]", "mode": "attribute(href)"}
	}`)

	result, err := Extract(loadDoc(t, productPage), schema)

	require.NoError(t, err)
	assert.Equal(t, Result{
		"title":     "Widget Pro",
		"price":     "$19",
		"features":  []string{"Fast", "Small and light"},
		"details":   nil,
		"images":    []string{"/a.png", "/b.png"},
		"canonical": "https://shop.example.com/widget",
	}, result)
}

func TestExtract_MissingOptionalFields(t *testing.T) {
	schema := mustSchema(t, `{
		"subtitle": "h2",
		"author": {"selector": "meta[name=author]", "mode": "attribute", "attribute": "content"},
		"tags": [".tag"],
		"links": {"selector": "nav a", "mode": "list-attribute", "attribute": "href"}
	}`)

	result, err := Extract(loadDoc(t, productPage), schema)

	require.NoError(t, err)
	assert.Nil(t, result["subtitle"])
	assert.Nil(t, result["author"])
	assert.Equal(t, []string{}, result["tags"])
	assert.Equal(t, []string{}, result["links"])
}

func TestExtract_KeySetEqualsSchema(t *testing.T) {
	schemas := []string{
		`{"a": "h1"}`,
		`{"a": "h1", "b": "nothing-here", "c": ["li"], "d": [".none"]}`,
		`{"x": {"selector": "img", "mode": "attribute", "attribute": "alt"}, "y": {"selector": "p", "mode": "list-text"}}`,
	}

	for _, raw := range schemas {
		schema := mustSchema(t, raw)
		result, err := Extract(loadDoc(t, productPage), schema)
		require.NoError(t, err)

		keys := make([]string, 0, len(result))
		for k := range result {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, schema.Names(), keys, raw)
	}
}

func TestExtract_RequiredFieldMissing(t *testing.T) {
	schema := mustSchema(t, `{
		"title": "h1",
		"sku": {"selector": ".sku", "required": true}
	}`)

	result, err := Extract(loadDoc(t, productPage), schema)

	require.Error(t, err)
	assert.Nil(t, result)
	d := ierrors.Describe(err)
	assert.Equal(t, ierrors.KindRequiredFieldMissing, d.Kind)
	assert.Equal(t, "sku", d.Field)
}

func TestExtract_RequiredListWithoutMatches(t *testing.T) {
	schema := mustSchema(t, `{"specs": {"selector": ".spec li", "mode": "list-text", "required": true}}`)

	_, err := Extract(loadDoc(t, productPage), schema)

	assert.Equal(t, ierrors.KindRequiredFieldMissing, ierrors.KindOf(err))
}

func TestExtract_RequiredMatchesWithEmptyValues(t *testing.T) {
	body := `<ul><li class="e"> </li><li class="e"></li></ul><a>no href</a><a href="/x">x</a>`
	schema := mustSchema(t, `{
		"empty": {"selector": "li.e", "mode": "list-text", "required": true},
		"hrefs": {"selector": "li.e", "mode": "list-attribute", "attribute": "href", "required": true},
		"link": {"selector": "a", "mode": "attribute(href)", "required": true}
	}`)

	result, err := Extract(loadDoc(t, body), schema)

	require.NoError(t, err)
	assert.Equal(t, []string{}, result["empty"])
	assert.Equal(t, []string{}, result["hrefs"])
	assert.Nil(t, result["link"])
}

func TestExtract_AttributeUsesFirstMatchOnly(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"first match has it", `<a href="/a">a</a><a href="/b">b</a>`, "/a"},
		{"first match lacks it", `<a>none</a><a href="/b">b</a>`, nil},
		{"empty value is kept", `<a href="">empty</a>`, ""},
		{"no match", `<p>nothing</p>`, nil},
	}

	schema := mustSchema(t, `{"link": {"selector": "a", "mode": "attribute", "attribute": "href"}}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(loadDoc(t, tt.body), schema)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result["link"])
		})
	}
}

func TestExtract_IgnoresScriptText(t *testing.T) {
	schema := mustSchema(t, `{"body": "body"}`)

	result, err := Extract(loadDoc(t, productPage), schema)

	require.NoError(t, err)
	assert.NotContains(t, result["body"], "$0")
	assert.Contains(t, result["body"], "Widget Pro")
}
