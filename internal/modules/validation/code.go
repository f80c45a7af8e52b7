package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/skooly-backend/internal/domain"
)

// CodeBlock is one fenced block from a response.
type CodeBlock struct {
	Language string
	Body     string
}

type syntaxChecker func(body string) []string

var syntaxCheckers = map[string]syntaxChecker{
	"javascript": checkCLike,
	"typescript": checkCLike,
	"python":     checkPython,
	"c":          checkCLike,
	"cpp":        checkCLike,
}

var (
	blockComment       = regexp.MustCompile(`(?s)/\*.*?\*/`)
	tripleQuotedString = regexp.MustCompile(`(?s)""".*?"""|'''.*?'''`)
)

var languageAliases = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"javascript": "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"typescript": "typescript",
	"py":         "python",
	"python":     "python",
	"python3":    "python",
	"c":          "c",
	"h":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"cc":         "cpp",
	"cxx":        "cpp",
	"hpp":        "cpp",
}

// ExtractCodeBlocks scans for ``` delimiters. An unterminated trailing
// block is still returned.
func ExtractCodeBlocks(text string) []CodeBlock {
	var (
		out    []CodeBlock
		inside bool
		cur    CodeBlock
		body   []string
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			if inside {
				body = append(body, line)
			}
			continue
		}
		if !inside {
			inside = true
			cur = CodeBlock{Language: strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))}
			body = body[:0]
			continue
		}
		cur.Body = strings.Join(body, "\n")
		out = append(out, cur)
		inside = false
	}
	if inside {
		cur.Body = strings.Join(body, "\n")
		out = append(out, cur)
	}
	return out
}

// StripCodeBlocks removes fenced blocks so prose checks do not see code.
func StripCodeBlocks(text string) string {
	var (
		b      strings.Builder
		inside bool
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inside = !inside
			continue
		}
		if !inside {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}

// CheckCode runs the per-language sanity checks. Unknown languages pass.
// Score is 100 when valid, minus 25 per error otherwise.
func CheckCode(response string) domain.CodeCheck {
	blocks := ExtractCodeBlocks(response)
	out := domain.CodeCheck{HasCode: len(blocks) > 0, Valid: true, Errors: []string{}, Blocks: len(blocks), Score: 100}
	for i, b := range blocks {
		lang := languageAliases[b.Language]
		check, ok := syntaxCheckers[lang]
		if !ok {
			continue
		}
		for _, e := range check(b.Body) {
			out.Errors = append(out.Errors, fmt.Sprintf("block %d (%s): %s", i+1, lang, e))
		}
	}
	if len(out.Errors) > 0 {
		out.Valid = false
		out.Score = 100 - 25*len(out.Errors)
		if out.Score < 0 {
			out.Score = 0
		}
	}
	return out
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

type openBracket struct {
	r    rune
	line int
}

func checkCLike(body string) []string {
	return checkBracketBalance(blockComment.ReplaceAllStringFunc(body, blankKeepingLines), "//")
}

// blankKeepingLines replaces a span with its newlines so line numbers hold.
func blankKeepingLines(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n"))
}

// checkBracketBalance matches (), [] and {} outside string literals and
// line comments.
func checkBracketBalance(body, lineComment string) []string {
	var (
		errs  []string
		stack []openBracket
	)
	for ln, line := range strings.Split(body, "\n") {
		var quote rune
		escaped := false
		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			r := runes[i]
			if quote == 0 && strings.HasPrefix(string(runes[i:]), lineComment) {
				break
			}
			if quote != 0 {
				switch {
				case escaped:
					escaped = false
				case r == '\\':
					escaped = true
				case r == quote:
					quote = 0
				}
				continue
			}
			switch r {
			case '"', '\'', '`':
				quote = r
			case '(', '[', '{':
				stack = append(stack, openBracket{r: r, line: ln + 1})
			case ')', ']', '}':
				want := closers[r]
				if len(stack) == 0 || stack[len(stack)-1].r != want {
					errs = append(errs, fmt.Sprintf("unmatched '%c' at line %d", r, ln+1))
					continue
				}
				stack = stack[:len(stack)-1]
			}
		}
		// Backtick template literals may span lines; other quotes may not.
		if quote != 0 && quote != '`' {
			errs = append(errs, fmt.Sprintf("unterminated string at line %d", ln+1))
		}
	}
	for _, o := range stack {
		errs = append(errs, fmt.Sprintf("unclosed '%c' from line %d", o.r, o.line))
	}
	return errs
}

var pythonBlockHeader = regexp.MustCompile(`^\s*(def|class|if|elif|else|for|while|try|except|finally|with)\b`)

func checkPython(body string) []string {
	body = tripleQuotedString.ReplaceAllStringFunc(body, blankKeepingLines)
	errs := checkBracketBalance(body, "#")
	depth, continued := 0, false
	for ln, line := range strings.Split(body, "\n") {
		// Lines inside an open bracket or after a backslash continue the
		// previous statement and are never headers.
		inside := depth > 0 || continued
		depth = pythonDepthAfter(line, depth)
		code := line
		if i := strings.Index(code, "#"); i >= 0 {
			code = code[:i]
		}
		code = strings.TrimRight(code, " \t")
		continued = strings.HasSuffix(code, "\\")
		if inside || !pythonBlockHeader.MatchString(line) {
			continue
		}
		if depth > 0 || continued || strings.HasSuffix(code, ":") {
			continue
		}
		if strings.Contains(code, ":") {
			// One-line form such as "if x: return y".
			continue
		}
		errs = append(errs, fmt.Sprintf("missing ':' after block header at line %d", ln+1))
	}
	return errs
}

// pythonDepthAfter returns the bracket depth at the end of line given the
// depth at its start, skipping strings and comments.
func pythonDepthAfter(line string, depth int) int {
	var quote rune
	escaped := false
	for _, r := range line {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '#':
			return depth
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}
