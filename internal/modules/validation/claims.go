package validation

import (
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

const minClaimLength = 20

// ClaimExtractor pulls checkable factual statements out of prose.
type ClaimExtractor interface {
	Extract(text string, max int) []string
}

// factualPattern matches copulas and modals, definition verbs, and causal
// connectives.
var factualPattern = regexp.MustCompile(`(?i)\b(is|are|was|were|will|can|cannot|could|should|must|may|might|has|have|had|means|refers to|defined as|defines|consists of|represents|contains|returns|uses|because|therefore|thus|hence|since|as a result|causes|leads to)\b`)

var sentenceBoundary = regexp.MustCompile(`[.!?]+(\s+|$)`)

// IsFactual reports whether a sentence is long enough and reads as a claim.
func IsFactual(sentence string) bool {
	s := strings.TrimSpace(sentence)
	return len(s) > minClaimLength && factualPattern.MatchString(s)
}

// PatternExtractor splits on terminal punctuation.
type PatternExtractor struct{}

func (PatternExtractor) Extract(text string, max int) []string {
	return collectClaims(splitPattern(prose(text)), max)
}

func splitPattern(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		out = append(out, text[last:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, text[last:])
	}
	return out
}

// SentenceExtractor segments with a trained Punkt tokenizer, which keeps
// abbreviations and decimals inside their sentence.
type SentenceExtractor struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewSentenceExtractor() (*SentenceExtractor, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &SentenceExtractor{tokenizer: tok}, nil
}

func (e *SentenceExtractor) Extract(text string, max int) []string {
	segs := e.tokenizer.Tokenize(prose(text))
	raw := make([]string, 0, len(segs))
	for _, s := range segs {
		raw = append(raw, s.Text)
	}
	return collectClaims(raw, max)
}

// prose drops code blocks and markdown structure that is not a sentence.
func prose(text string) string {
	lines := strings.Split(StripCodeBlocks(text), "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "#>*-+ ")
		if l == "" || strings.HasPrefix(l, "|") {
			continue
		}
		kept = append(kept, strings.ReplaceAll(l, "**", ""))
	}
	return strings.Join(kept, " ")
}

func collectClaims(candidates []string, max int) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !IsFactual(c) || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
