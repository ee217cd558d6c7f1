package document

// ParseText returns plain text or markdown as-is after UTF-8 normalization.
// Invalid byte sequences are replaced, never fatal.
func ParseText(body []byte, contentType string) *Document {
	return &Document{
		Kind:   KindText,
		Format: FormatText,
		Text:   decodeUTF8(body, contentType, false),
	}
}
