package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
)

const maxDocxXMLBytes = 64 << 20

// ParseDOCX extracts paragraph text from word/document.xml in document order.
// Paragraphs inside tables are skipped. The first heading-styled paragraph
// becomes the title.
func ParseDOCX(body []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "not a DOCX archive (encrypted or corrupt)")
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, ierrors.New(ierrors.KindUnparseableDocument, "word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "cannot open document.xml")
	}
	defer rc.Close()

	title, paragraphs, err := docxParagraphs(io.LimitReader(rc, maxDocxXMLBytes))
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindUnparseableDocument, err, "malformed document.xml")
	}

	return &Document{
		Kind:   KindText,
		Format: FormatDOCX,
		Title:  title,
		Text:   collapseWhitespace(strings.Join(paragraphs, "\n")),
	}, nil
}

func docxParagraphs(r io.Reader) (string, []string, error) {
	dec := xml.NewDecoder(r)

	var (
		title      string
		paragraphs []string
		current    strings.Builder
		style      string
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return title, paragraphs, nil
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				current.Reset()
				style = ""
			case "pStyle":
				for _, a := range t.Attr {
					if a.Name.Local == "val" {
						style = a.Value
					}
				}
			case "t":
				inText = true
			case "tab", "br", "cr":
				current.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(current.String())
				if text == "" || tableDepth > 0 {
					continue
				}
				if title == "" && isHeadingStyle(style) {
					title = text
				}
				paragraphs = append(paragraphs, text)
			}
		}
	}
}

func isHeadingStyle(style string) bool {
	s := strings.ToLower(style)
	return s == "title" || strings.HasPrefix(s, "heading")
}
