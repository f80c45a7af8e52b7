package parser

import "strings"

const (
	DefaultMaxChunkSize = 2000
	DefaultOverlap      = 200
)

// ChunkText splits text into windows of at most maxChunkSize characters that
// overlap by overlap characters. Breaks prefer a paragraph boundary, then a
// sentence boundary, inside the back half of each window; otherwise the
// window is cut hard. Text carrying the code marker is chunked by ChunkCode.
func ChunkText(text string, maxChunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 0
	}
	if IsCode(text) {
		return ChunkCode(text, maxChunkSize)
	}

	runes := []rune(text)
	n := len(runes)
	if n <= maxChunkSize {
		return []string{strings.TrimSpace(text)}
	}

	half := maxChunkSize / 2
	var chunks []string
	start := 0
	for start < n {
		end := start + maxChunkSize
		if end > n {
			end = n
		}
		if end < n {
			window := runes[start:end]
			if pb := lastIndex(window, []rune("\n\n")); pb > half {
				end = start + pb
			} else if sb := lastIndex(window, []rune(". ")); sb > half {
				end = start + sb + 1
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if s[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
