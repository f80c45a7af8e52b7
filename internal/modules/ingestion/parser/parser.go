package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindPPTX  Kind = "pptx"
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindImage Kind = "image"
)

// ErrNoText marks formats with no extractable text. Such uploads are kept
// as file references for the model to read directly.
var ErrNoText = errors.New("no extractable text")

// CodeMarkerPrefix starts the first line of parsed source code. ChunkText
// switches to code-aware chunking when it sees it.
const CodeMarkerPrefix = "[Language:"

// ParseError reports a failed extraction. Callers treat it as "no content".
type ParseError struct {
	Name     string
	Kind     Kind
	MIMEType string
	Err      error
}

func (e *ParseError) Error() string {
	if e.MIMEType != "" {
		return fmt.Sprintf("parse %s (%s, %s): %v", e.Name, e.Kind, e.MIMEType, e.Err)
	}
	return fmt.Sprintf("parse %s (%s): %v", e.Name, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type extractor func(data []byte) (string, error)

var extractors = map[Kind]extractor{
	KindPDF:   extractPDF,
	KindDOCX:  extractDOCX,
	KindPPTX:  extractPPTX,
	KindText:  extractPlain,
	KindImage: func([]byte) (string, error) { return "", ErrNoText },
}

var kindByExt = map[string]Kind{
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".pptx":     KindPPTX,
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
	".csv":      KindText,
	".json":     KindText,
	".png":      KindImage,
	".jpg":      KindImage,
	".jpeg":     KindImage,
	".gif":      KindImage,
	".webp":     KindImage,
	".heic":     KindImage,
}

var languageByExt = map[string]string{
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".java":  "Java",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".go":    "Go",
	".rb":    "Ruby",
	".php":   "PHP",
	".rs":    "Rust",
	".swift": "Swift",
	".kt":    "Kotlin",
	".sql":   "SQL",
	".sh":    "Shell",
}

// KindFor resolves the extraction kind from the file name's extension.
// Unknown extensions read as plain text.
func KindFor(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	if k, ok := kindByExt[ext]; ok {
		return k
	}
	if _, ok := languageByExt[ext]; ok {
		return KindCode
	}
	return KindText
}

// LanguageFor returns the display name of the source language, or "".
func LanguageFor(name string) string {
	return languageByExt[strings.ToLower(filepath.Ext(name))]
}

// ParseFile reads path from disk and extracts its text.
func ParseFile(path, mimeType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ParseError{Name: filepath.Base(path), Kind: KindFor(path), MIMEType: mimeType, Err: err}
	}
	return Parse(filepath.Base(path), mimeType, data)
}

// Parse extracts text from an in-memory upload. Dispatch is by extension;
// the declared mime type is only reported in a ParseError.
func Parse(name, mimeType string, data []byte) (string, error) {
	kind := KindFor(name)
	if len(data) == 0 {
		return "", &ParseError{Name: name, Kind: kind, MIMEType: mimeType, Err: fmt.Errorf("empty file")}
	}
	if kind == KindCode {
		return fmt.Sprintf("%s %s]\n\n%s", CodeMarkerPrefix, LanguageFor(name), string(data)), nil
	}
	text, err := extractors[kind](data)
	if err != nil {
		return "", &ParseError{Name: name, Kind: kind, MIMEType: mimeType, Err: err}
	}
	return text, nil
}

// IsCode reports whether text carries the code marker.
func IsCode(text string) bool {
	return strings.HasPrefix(text, CodeMarkerPrefix)
}
