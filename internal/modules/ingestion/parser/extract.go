package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (string, error) {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return "", fmt.Errorf("missing %%PDF header")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	s := normalizeText(string(b))
	if s == "" {
		return "", fmt.Errorf("no text layer in pdf")
	}
	return s, nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx container: %w", err)
	}
	f := findZipFile(zr, "word/document.xml")
	if f == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}
	b, err := readZipFile(f)
	if err != nil {
		return "", err
	}
	s := normalizeText(xmlParagraphText(b, "p"))
	if s == "" {
		return "", fmt.Errorf("no text extracted from docx")
	}
	return s, nil
}

func extractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pptx container: %w", err)
	}
	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })
	var out strings.Builder
	for _, f := range slides {
		b, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		out.WriteString(xmlParagraphText(b, "p"))
		out.WriteString("\n\n")
	}
	s := normalizeText(out.String())
	if s == "" {
		return "", fmt.Errorf("no text extracted from pptx")
	}
	return s, nil
}

func extractPlain(data []byte) (string, error) {
	if bytes.IndexByte(data[:min(len(data), 4096)], 0x00) >= 0 {
		return "", fmt.Errorf("binary content")
	}
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var slideNumRE = regexp.MustCompile(`(\d+)\.xml$`)

func slideNumber(name string) int {
	m := slideNumRE.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n
}

// xmlParagraphText gathers <*:t> runs and ends each paragraph element with a
// blank line so paragraph boundaries survive for chunking.
func xmlParagraphText(xmlBytes []byte, paragraphLocal string) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					out.WriteString(v)
				}
			}
			if el.Name.Local == "tab" {
				out.WriteString("\t")
			}
		case xml.EndElement:
			if el.Name.Local == paragraphLocal {
				out.WriteString("\n\n")
			}
		}
	}
	return out.String()
}

var (
	inlineSpaceRE = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLinesRE  = regexp.MustCompile(`\n{3,}`)
)

// normalizeText collapses runs of inline whitespace and blank lines while
// keeping paragraph breaks.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = inlineSpaceRE.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
