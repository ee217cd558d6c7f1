package document

import (
	"bytes"
	"io"
	"strings"
	"unicode"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// pdfcpu otherwise writes a configuration directory on first use.
	api.DisableConfigDir()
}

// ParsePDF extracts the text of every page in order. Encrypted or corrupt
// files fail with UnparseableDocument; a PDF without a text layer yields
// empty text.
func ParsePDF(body []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = ierrors.New(ierrors.KindUnparseableDocument, "corrupt PDF: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(body), conf)
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "cannot read PDF")
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			zap.S().Debugw("skipping PDF page without content", "page", pageNr, "error", err)
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "cannot read page %d", pageNr)
		}
		if text := contentStreamText(data); text != "" {
			pages = append(pages, text)
		}
	}

	return &Document{
		Kind:   KindText,
		Format: FormatPDF,
		Text:   collapseWhitespace(strings.Join(pages, "\n")),
	}, nil
}

// contentStreamText walks a page content stream and collects the string
// operands of the text-showing operators (Tj, TJ, ' and ").
func contentStreamText(data []byte) string {
	var (
		out     strings.Builder
		pending []string
	)

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, n := readLiteral(data[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '<':
			// Hex strings usually carry CID glyph codes that are not text.
			for i < len(data) && data[i] != '>' {
				i++
			}
			i++
		case isPDFRegular(c):
			start := i
			for i < len(data) && isPDFRegular(data[i]) {
				i++
			}
			switch string(data[start:i]) {
			case "Tj", "TJ":
				out.WriteString(strings.Join(pending, ""))
			case "'", `"`:
				out.WriteByte('\n')
				out.WriteString(strings.Join(pending, ""))
			case "Td", "TD", "T*", "Tm", "ET":
				out.WriteByte(' ')
			default:
				continue
			}
			pending = pending[:0]
		default:
			i++
		}
	}

	return collapseWhitespace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, out.String()))
}

func isPDFRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}

// readLiteral decodes a balanced "( ... )" string starting at data[0] and
// returns it with the number of bytes consumed.
func readLiteral(data []byte) (string, int) {
	var raw []byte
	depth := 0
	i := 0
	for ; i < len(data); i++ {
		c := data[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				i++
				return decodePDFDoc(raw), i
			}
		case '\\':
			i++
			if i >= len(data) {
				break
			}
			switch e := data[i]; e {
			case 'n':
				raw = append(raw, '\n')
			case 'r':
				raw = append(raw, '\r')
			case 't':
				raw = append(raw, '\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := 0
					for k := 0; k < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7'; k++ {
						v = v*8 + int(data[i]-'0')
						i++
					}
					i--
					raw = append(raw, byte(v))
				} else {
					raw = append(raw, e)
				}
			}
			continue
		}
		raw = append(raw, c)
	}
	return decodePDFDoc(raw), i
}

// decodePDFDoc maps single-byte string operands to UTF-8. Simple fonts are
// overwhelmingly WinAnsi encoded, which windows-1252 matches.
func decodePDFDoc(raw []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
