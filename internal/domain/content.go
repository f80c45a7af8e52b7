package domain

import "strings"

// FileURLPrefix marks stored content that carries no extracted text, only
// the URL of the original file.
const FileURLPrefix = "FILE_URL:"

// Content is either TextContent or FileReference.
type Content interface {
	isContent()
}

type TextContent struct {
	Text string
}

type FileReference struct {
	URL string
}

func (TextContent) isContent()   {}
func (FileReference) isContent() {}

// EncodeContent renders c in its persisted string form.
func EncodeContent(c Content) string {
	switch v := c.(type) {
	case FileReference:
		return FileURLPrefix + v.URL
	case TextContent:
		return v.Text
	default:
		return ""
	}
}

// DecodeContent parses a persisted string. A FILE_URL: prefix with a
// non-empty URL decodes to FileReference; everything else is text.
func DecodeContent(raw string) Content {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, FileURLPrefix) {
		if url := strings.TrimSpace(strings.TrimPrefix(trimmed, FileURLPrefix)); url != "" {
			return FileReference{URL: url}
		}
	}
	return TextContent{Text: raw}
}
