package gemini

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"

	"github.com/yungbote/skooly-backend/internal/platform/httpx"
)

func TestSampleRateFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/L16;codec=pcm;rate=24000", 24000},
		{"audio/L16; rate=16000", 16000},
		{"audio/L16", 24000},
		{"audio/L16;rate=abc", 24000},
	}
	for _, tt := range tests {
		if got := SampleRateFromMIME(tt.mime, 24000); got != tt.want {
			t.Fatalf("SampleRateFromMIME(%q): want=%d got=%d", tt.mime, tt.want, got)
		}
	}
}

func TestCheckBlocked(t *testing.T) {
	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}}
	if err := checkBlocked(ok); err != nil {
		t.Fatalf("stop finish should pass: %v", err)
	}
	blocked := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}
	err := checkBlocked(blocked)
	if !IsSafetyBlock(err) {
		t.Fatalf("want safety block, got %v", err)
	}
}

func TestIsSafetyBlockMatchesMarkerText(t *testing.T) {
	if !IsSafetyBlock(fmt.Errorf("upstream: candidate blocked due to SAFETY")) {
		t.Fatalf("marker text should be detected")
	}
	if IsSafetyBlock(errors.New("quota exceeded")) || IsSafetyBlock(nil) {
		t.Fatalf("unexpected safety classification")
	}
}

func TestCallErrorRetryClassification(t *testing.T) {
	if !httpx.IsRetryableError(&CallError{Op: "generate", StatusCode: 429}) {
		t.Fatalf("429 should be retryable")
	}
	if httpx.IsRetryableError(&CallError{Op: "generate", StatusCode: 400}) {
		t.Fatalf("400 should not be retryable")
	}
	wrapped := wrapCallError("embed", genai.APIError{Code: 503, Message: "overloaded"})
	var ce *CallError
	if !errors.As(wrapped, &ce) || ce.StatusCode != 503 || !httpx.IsRetryableError(wrapped) {
		t.Fatalf("wrapped api error: %v", wrapped)
	}
}

func TestBuildRequestMapsHistoryAndFiles(t *testing.T) {
	c := &Client{cfg: Config{}.withDefaults()}
	contents, cfg := c.buildRequest(GenerateRequest{
		Prompt: "Explain recursion",
		System: "You are a tutor",
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "  "},
		},
		Files: []FilePart{{Data: []byte("%PDF"), MIMEType: "application/pdf"}},
		JSON:  true,
	})
	if len(contents) != 3 {
		t.Fatalf("contents: want=3 got=%d", len(contents))
	}
	if string(contents[1].Role) != string(genai.RoleModel) {
		t.Fatalf("assistant turn should map to model role, got %q", contents[1].Role)
	}
	last := contents[2]
	if len(last.Parts) != 2 || last.Parts[0].InlineData == nil || last.Parts[1].Text != "Explain recursion" {
		t.Fatalf("final turn parts: %+v", last.Parts)
	}
	if cfg.ResponseMIMEType != "application/json" || cfg.SystemInstruction == nil {
		t.Fatalf("config: %+v", cfg)
	}
}
