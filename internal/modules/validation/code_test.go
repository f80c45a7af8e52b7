package validation

import (
	"strings"
	"testing"
)

func TestExtractCodeBlocks(t *testing.T) {
	text := "Intro\n```Python\nprint('hi')\n```\ntext\n```\nplain\n```\n```js\nlet a = 1"
	blocks := ExtractCodeBlocks(text)
	if len(blocks) != 3 {
		t.Fatalf("blocks: want=3 got=%d", len(blocks))
	}
	if blocks[0].Language != "python" || blocks[0].Body != "print('hi')" {
		t.Fatalf("first block: %+v", blocks[0])
	}
	if blocks[1].Language != "" || blocks[2].Body != "let a = 1" {
		t.Fatalf("blocks: %+v", blocks)
	}
}

func TestCheckCode(t *testing.T) {
	cases := []struct {
		name      string
		response  string
		hasCode   bool
		valid     bool
		errSubstr string
	}{
		{name: "no code", response: "Just prose.", hasCode: false, valid: true},
		{name: "balanced js", response: "```javascript\nfunction f(a) {\n  return [a, {b: \")\"}];\n}\n```", hasCode: true, valid: true},
		{name: "unbalanced ts", response: "```ts\nfunction f(a: number {\n  return a;\n}\n```", hasCode: true, valid: false, errSubstr: "unclosed '(' from line 1"},
		{name: "stray closer", response: "```js\nconst a = [1, 2]];\n```", hasCode: true, valid: false, errSubstr: "unmatched ']' at line 1"},
		{name: "js comment ignored", response: "```js\n// close } here\n/* and ( there */\nconst x = 1;\n```", hasCode: true, valid: true},
		{name: "python ok", response: "```python\ndef f(x):\n    \"\"\"Doc (with paren\n    \"\"\"\n    if x: return 1\n    return [x]  # ]\n```", hasCode: true, valid: true},
		{name: "python comprehension continuation", response: "```python\nsquares = [x * x\n           for x in range(10)]\n```", hasCode: true, valid: true},
		{name: "python wrapped header", response: "```python\ndef area(width,\n         height):\n    if (width > 0 and\n            height > 0):\n        return width * height\n    with open(\"a\") as f, \\\n         open(\"b\") as g:\n        pass\n```", hasCode: true, valid: true},
		{name: "python missing colon after wrapped call", response: "```python\nresult = max(1,\n             2)\nwhile result > 0\n    result -= 1\n```", hasCode: true, valid: false, errSubstr: "missing ':' after block header at line 3"},
		{name: "python missing colon", response: "```py\ndef f(x)\n    return x\n```", hasCode: true, valid: false, errSubstr: "missing ':'"},
		{name: "c unclosed", response: "```c\nint main() {\n  printf(\"%d\", (1 + 2);\n```", hasCode: true, valid: false, errSubstr: "unclosed"},
		{name: "unknown language passes", response: "```rust\nfn main() {{{\n```", hasCode: true, valid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckCode(tc.response)
			if got.HasCode != tc.hasCode || got.Valid != tc.valid {
				t.Fatalf("hasCode=%v valid=%v errors=%v", got.HasCode, got.Valid, got.Errors)
			}
			if tc.valid && got.Score != 100 {
				t.Fatalf("valid code score: %d", got.Score)
			}
			if !tc.valid {
				if got.Score != 100-25*len(got.Errors) && got.Score != 0 {
					t.Fatalf("score %d for %d errors", got.Score, len(got.Errors))
				}
				if !strings.Contains(strings.Join(got.Errors, "; "), tc.errSubstr) {
					t.Fatalf("errors %v missing %q", got.Errors, tc.errSubstr)
				}
			}
		})
	}
}

func TestStripCodeBlocks(t *testing.T) {
	got := StripCodeBlocks("Before.\n```go\nx := 1\n```\nAfter.")
	if got != "Before.\nAfter." {
		t.Fatalf("got %q", got)
	}
}
