package parser

import (
	"regexp"
	"strings"
)

const maxCodeChunkLines = 40

var blockStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(async\s+)?function\b`),
	regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(abstract\s+)?class\s+\w`),
	regexp.MustCompile(`^\s*(async\s+)?def\s+\w`),
	regexp.MustCompile(`^\s*func\s`),
	regexp.MustCompile(`^\s*(pub\s+)?(struct|enum|trait|impl)\b`),
	regexp.MustCompile(`^\s*(export\s+)?(interface|enum|type)\s+\w`),
	regexp.MustCompile(`^\s*(export\s+)?const\s+\w+\s*=\s*(async\s*)?(\([^)]*\)|\w+)\s*=>`),
	regexp.MustCompile(`^\s*(public|private|protected)\s`),
}

func isBlockStart(line string) bool {
	for _, re := range blockStartPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// ChunkCode splits source line by line, starting a new chunk at a top-level
// declaration once the running chunk is past half of maxChunkSize or longer
// than 40 lines. A chunk is also closed before it would exceed maxChunkSize;
// a single line longer than that becomes its own chunk.
func ChunkCode(text string, maxChunkSize int) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	var (
		chunks  []string
		current []string
		size    int
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "\n")); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
		size = 0
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lineLen := len([]rune(line)) + 1
		if len(current) > 0 && isBlockStart(line) && (size > maxChunkSize/2 || len(current) > maxCodeChunkLines) {
			flush()
		}
		if len(current) > 0 && size+lineLen > maxChunkSize {
			flush()
		}
		current = append(current, line)
		size += lineLen
	}
	flush()
	return chunks
}
