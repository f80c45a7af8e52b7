package validation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
)

const (
	rubricDefaultScore  = 75
	rubricFallbackScore = 80

	selfEvalDefaultScore      = 7
	selfEvalDefaultConfidence = "medium"
	selfEvalFailedScore       = 5
)

// Judge is the model used for rubric scoring and self-evaluation.
type Judge interface {
	Generate(ctx context.Context, req gemini.GenerateRequest) (string, error)
}

// Rubric weights in percent.
var rubricWeights = struct{ accuracy, completeness, clarity, relevance int }{30, 25, 20, 25}

const rubricPrompt = `You are grading an answer written for a university student.

Question:
%s

Answer:
%s

Score each criterion from 0 to 100 and reply with exactly these lines:
ACCURACY: <score>
COMPLETENESS: <score>
CLARITY: <score>
RELEVANCE: <score>`

const selfEvalPrompt = `Review the answer you gave to this question.

Question:
%s

Answer:
%s

Reply with exactly these lines:
SCORE: <1-10>
CONFIDENCE: <low|medium|high>
ISSUES: <problems found, or none>
IMPROVEMENT: <one concrete suggestion>`

func labeledLine(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[\s*_#-]*` + label + `[\s*_]*:[\s*_]*(.+?)\s*$`)
}

var (
	accuracyLine     = labeledLine("accuracy")
	completenessLine = labeledLine("completeness")
	clarityLine      = labeledLine("clarity")
	relevanceLine    = labeledLine("relevance")

	scoreLine       = labeledLine("score")
	confidenceLine  = labeledLine("confidence")
	issuesLine      = labeledLine("issues")
	improvementLine = labeledLine("improvement")

	leadingInt = regexp.MustCompile(`^\d{1,3}`)
)

func labeledValue(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func labeledInt(re *regexp.Regexp, text string, def, lo, hi int) int {
	v, ok := labeledValue(re, text)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(leadingInt.FindString(v))
	if err != nil {
		return def
	}
	return clampInt(n, lo, hi)
}

// ParseRubric reads the judge's labeled lines, defaulting missing ones to 75.
func ParseRubric(text string) domain.RubricCheck {
	c := domain.RubricCriteria{
		Accuracy:     labeledInt(accuracyLine, text, rubricDefaultScore, 0, 100),
		Completeness: labeledInt(completenessLine, text, rubricDefaultScore, 0, 100),
		Clarity:      labeledInt(clarityLine, text, rubricDefaultScore, 0, 100),
		Relevance:    labeledInt(relevanceLine, text, rubricDefaultScore, 0, 100),
	}
	return domain.RubricCheck{Criteria: c, TotalScore: rubricTotal(c)}
}

func rubricTotal(c domain.RubricCriteria) int {
	sum := c.Accuracy*rubricWeights.accuracy +
		c.Completeness*rubricWeights.completeness +
		c.Clarity*rubricWeights.clarity +
		c.Relevance*rubricWeights.relevance
	return int(math.Round(float64(sum) / 100))
}

func rubricFallback() domain.RubricCheck {
	c := domain.RubricCriteria{
		Accuracy:     rubricFallbackScore,
		Completeness: rubricFallbackScore,
		Clarity:      rubricFallbackScore,
		Relevance:    rubricFallbackScore,
	}
	return domain.RubricCheck{Criteria: c, TotalScore: rubricTotal(c), Fallback: true}
}

func (v *Validator) checkRubric(ctx context.Context, response, query string) domain.RubricCheck {
	if v.judge == nil {
		return rubricFallback()
	}
	out, err := v.judge.Generate(ctx, gemini.GenerateRequest{
		Prompt:      fmt.Sprintf(rubricPrompt, query, response),
		Temperature: &v.cfg.JudgeTemperature,
	})
	if err != nil {
		v.log.Warn("rubric judge failed; using fallback score", "error", err)
		return rubricFallback()
	}
	return ParseRubric(out)
}

// ParseSelfEval reads the self-evaluation lines with score 7 and confidence
// "medium" as defaults.
func ParseSelfEval(text string) domain.SelfEvalCheck {
	out := domain.SelfEvalCheck{
		Score:      labeledInt(scoreLine, text, selfEvalDefaultScore, 1, 10),
		Confidence: selfEvalDefaultConfidence,
	}
	if c, ok := labeledValue(confidenceLine, text); ok {
		switch c = strings.ToLower(strings.Trim(c, " .*_")); c {
		case "low", "medium", "high":
			out.Confidence = c
		}
	}
	if s, ok := labeledValue(issuesLine, text); ok {
		out.Issues = s
	}
	if s, ok := labeledValue(improvementLine, text); ok {
		out.Improvement = s
	}
	return out
}

func (v *Validator) checkSelfEval(ctx context.Context, response, query string) domain.SelfEvalCheck {
	if v.judge == nil {
		return selfEvalFailed()
	}
	out, err := v.judge.Generate(ctx, gemini.GenerateRequest{
		Prompt:      fmt.Sprintf(selfEvalPrompt, query, response),
		Temperature: &v.cfg.JudgeTemperature,
	})
	if err != nil {
		v.log.Warn("self evaluation failed", "error", err)
		return selfEvalFailed()
	}
	return ParseSelfEval(out)
}

func selfEvalFailed() domain.SelfEvalCheck {
	return domain.SelfEvalCheck{Score: selfEvalFailedScore, Confidence: "unknown", Issues: "Evaluation failed"}
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
