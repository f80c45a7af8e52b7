package validation

import (
	"fmt"
	"strings"
	"testing"
)

func TestPatternExtractor(t *testing.T) {
	text := "# Heading\nToo short. Recursion is a function that calls itself. " +
		"Nice weather today, friends! A stack overflow happens because frames pile up.\n" +
		"```python\nx = 1 is not claim text anyway\n```\n- **Binary search** runs in logarithmic time since it halves the range."
	got := PatternExtractor{}.Extract(text, 10)
	want := []string{
		"Recursion is a function that calls itself.",
		"A stack overflow happens because frames pile up.",
		"Binary search runs in logarithmic time since it halves the range.",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("claims:\n got=%q\nwant=%q", got, want)
	}
}

func TestExtractorsCapClaims(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "Statement %d is a factual sentence about sorting. ", i)
	}
	if got := (PatternExtractor{}).Extract(b.String(), 10); len(got) != 10 {
		t.Fatalf("pattern cap: want=10 got=%d", len(got))
	}

	se, err := NewSentenceExtractor()
	if err != nil {
		t.Fatalf("NewSentenceExtractor: %v", err)
	}
	if got := se.Extract(b.String(), 10); len(got) != 10 {
		t.Fatalf("sentence cap: want=10 got=%d", len(got))
	}
}

func TestSentenceExtractorSkipsNonClaims(t *testing.T) {
	se, err := NewSentenceExtractor()
	if err != nil {
		t.Fatalf("NewSentenceExtractor: %v", err)
	}
	got := se.Extract("Hello there. A hash table maps keys to buckets because lookups must be fast.", 10)
	if len(got) != 1 || !strings.HasPrefix(got[0], "A hash table") {
		t.Fatalf("claims: %q", got)
	}
}
