package domain

import "time"

type ValidationStatus string

const (
	StatusVerified    ValidationStatus = "verified"
	StatusAcceptable  ValidationStatus = "acceptable"
	StatusNeedsReview ValidationStatus = "needs_review"
)

type CodeCheck struct {
	HasCode bool     `json:"hasCode"`
	Valid   bool     `json:"valid"`
	Errors  []string `json:"errors"`
	Blocks  int      `json:"blocks"`
	Score   int      `json:"score"`
}

type GroundingCheck struct {
	Score      int      `json:"score"`
	Grounded   bool     `json:"grounded"`
	Skipped    bool     `json:"skipped,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Checked    int      `json:"checked"`
	Supported  int      `json:"supported"`
	Unverified []string `json:"unverified,omitempty"`
}

type RubricCriteria struct {
	Accuracy     int `json:"accuracy"`
	Completeness int `json:"completeness"`
	Clarity      int `json:"clarity"`
	Relevance    int `json:"relevance"`
}

type RubricCheck struct {
	Criteria   RubricCriteria `json:"criteria"`
	TotalScore int            `json:"totalScore"`
	Fallback   bool           `json:"fallback,omitempty"`
}

type SelfEvalCheck struct {
	Score       int    `json:"score"`
	Confidence  string `json:"confidence"`
	Issues      string `json:"issues,omitempty"`
	Improvement string `json:"improvement,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

type ValidationChecks struct {
	Code      CodeCheck      `json:"code"`
	Grounding GroundingCheck `json:"grounding"`
	Rubric    RubricCheck    `json:"rubric"`
	SelfEval  SelfEvalCheck  `json:"selfEval"`
}

type ValidationResult struct {
	Timestamp    time.Time        `json:"timestamp"`
	Checks       ValidationChecks `json:"checks"`
	OverallScore int              `json:"overallScore"`
	Status       ValidationStatus `json:"status"`
}

// StatusForScore maps an overall score to its status band.
func StatusForScore(score int) ValidationStatus {
	switch {
	case score >= 80:
		return StatusVerified
	case score >= 60:
		return StatusAcceptable
	default:
		return StatusNeedsReview
	}
}
