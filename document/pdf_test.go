package document

import (
	"strconv"
	"strings"
	"testing"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePDF_ExtractsPageText(t *testing.T) {
	doc, err := ParsePDF(buildTextPDF("Hello World from a PDF"))

	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.Equal(t, FormatPDF, doc.Format)
	assert.Contains(t, doc.Text, "Hello World from a PDF")
}

func TestParsePDF_Corrupt(t *testing.T) {
	_, err := ParsePDF([]byte("%PDF-1.4\nthis is not really a pdf"))

	require.Error(t, err)
	assert.Equal(t, ierrors.KindUnparseableDocument, ierrors.KindOf(err))
}

func TestContentStreamText(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		expected string
	}{
		{name: "simple Tj", stream: "BT /F1 12 Tf 72 720 Td (Hello) Tj ET", expected: "Hello"},
		{name: "TJ array with kerning", stream: "BT [(Wor) -20 (ld)] TJ ET", expected: "World"},
		{name: "line moves separate words", stream: "BT (one) Tj 0 -14 Td (two) Tj T* (three) Tj ET", expected: "one two three"},
		{name: "escapes and octal", stream: `BT (a\(b\) \101) Tj ET`, expected: "a(b) A"},
		{name: "quote operator starts a new line", stream: "BT (first) Tj (second) ' ET", expected: "first second"},
		{name: "hex strings skipped", stream: "BT <48656c6c6f> Tj ET", expected: ""},
		{name: "comments ignored", stream: "% (not text) Tj\nBT (text) Tj ET", expected: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, contentStreamText([]byte(tt.stream)))
		})
	}
}

// buildTextPDF writes a one-page PDF with a single Helvetica text run and a
// correct xref table.
func buildTextPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		"<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		b.WriteString(strconv.Itoa(i+1) + " 0 obj\n" + obj + "\nendobj\n")
	}

	xref := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(len(objects)+1) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		s := strconv.Itoa(off)
		b.WriteString(strings.Repeat("0", 10-len(s)) + s + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(len(objects)+1) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}
