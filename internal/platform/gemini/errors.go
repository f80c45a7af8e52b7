package gemini

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// CallError is a failed model call. The message carries the upstream text so
// markers such as SAFETY survive wrapping.
type CallError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gemini %s: status=%d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini %s: %s", e.Op, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// HTTPStatusCode lets httpx.IsRetryableError classify the failure.
func (e *CallError) HTTPStatusCode() int { return e.StatusCode }

// BlockedError reports a prompt or candidate stopped by safety filters.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "gemini: response blocked: SAFETY: " + e.Reason
}

func wrapCallError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &CallError{Op: op, StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &CallError{Op: op, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return &CallError{Op: op, Message: err.Error(), Err: err}
}

// checkBlocked inspects a response for a prompt block or a SAFETY finish.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return &BlockedError{Reason: string(fb.BlockReason)}
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		switch cand.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return &BlockedError{Reason: string(cand.FinishReason)}
		}
	}
	return nil
}

// IsSafetyBlock reports a safety rejection from either a typed block or an
// upstream error whose text names the SAFETY marker.
func IsSafetyBlock(err error) bool {
	if err == nil {
		return false
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return true
	}
	return strings.Contains(strings.ToUpper(err.Error()), "SAFETY")
}
