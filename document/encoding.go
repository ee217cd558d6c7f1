package document

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const replacementChar = "\uFFFD"

// decodeUTF8 converts body to a valid UTF-8 string. A BOM or an explicit
// charset parameter decides the source encoding. For HTML the <meta> prescan
// is honoured too, and undeclared non-UTF-8 bytes fall back to windows-1252
// as browsers do. Anything still invalid is replaced with U+FFFD.
func decodeUTF8(body []byte, contentType string, html bool) string {
	enc, name, certain := charset.DetermineEncoding(body, contentType)

	decode := certain
	if !certain && html {
		// The prescan and the final fallback both report uncertain;
		// trust them only when the bytes are not already UTF-8.
		decode = !utf8.Valid(body)
	}

	if decode && name != "utf-8" {
		if out, _, err := transform.Bytes(enc.NewDecoder(), body); err == nil {
			body = out
		}
	}

	s := strings.TrimPrefix(string(body), "\uFEFF")
	return strings.ToValidUTF8(s, replacementChar)
}

// collapseWhitespace folds every whitespace run into a single space and trims.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
