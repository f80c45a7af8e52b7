package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

type MCQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// ParseMCQ reads the model's JSON array, tolerating stray fences or prose
// around it. Questions without four options or whose answer is not one of
// them are dropped.
func ParseMCQ(raw string) ([]MCQuestion, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("mcq output has no JSON array")
	}
	var qs []MCQuestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &qs); err != nil {
		return nil, fmt.Errorf("decode mcq output: %w", err)
	}
	out := make([]MCQuestion, 0, len(qs))
	for _, q := range qs {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || len(q.Options) != 4 {
			continue
		}
		answer := strings.TrimSpace(q.CorrectAnswer)
		matched := false
		for i, opt := range q.Options {
			q.Options[i] = strings.TrimSpace(opt)
			if strings.EqualFold(q.Options[i], answer) {
				answer = q.Options[i]
				matched = true
			}
		}
		if !matched && len(answer) == 1 {
			// Some answers come back as a letter.
			if c := answer[0] | 0x20; c >= 'a' && c <= 'd' {
				answer = q.Options[c-'a']
				matched = true
			}
		}
		if !matched {
			continue
		}
		q.CorrectAnswer = answer
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("mcq output has no usable questions")
	}
	return out, nil
}
