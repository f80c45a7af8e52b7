package generation

import (
	"context"
	"strings"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
)

// AnswerRequest is one grounded question. History is prior turns, oldest first.
type AnswerRequest struct {
	Question      string
	Context       string
	Customization string
	Files         []domain.FileSource
	History       []gemini.Message
}

func (o *Orchestrator) answerRequest(ctx context.Context, req AnswerRequest) (gemini.GenerateRequest, error) {
	parts := o.LoadFiles(ctx, req.Files)
	prompt, err := o.catalog.BuildAnswer(AnswerInput{
		Question:      strings.TrimSpace(req.Question),
		Context:       req.Context,
		Customization: req.Customization,
		HasFiles:      len(parts) > 0,
	})
	if err != nil {
		return gemini.GenerateRequest{}, err
	}
	return gemini.GenerateRequest{
		Prompt:  prompt,
		System:  o.catalog.System,
		History: req.History,
		Files:   parts,
	}, nil
}

// Answer generates a grounded answer under the generation timeout.
func (o *Orchestrator) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	greq, err := o.answerRequest(ctx, req)
	if err != nil {
		return "", err
	}
	text, err := o.Complete(ctx, greq)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// StreamAnswer is Answer delivered as fragments.
func (o *Orchestrator) StreamAnswer(ctx context.Context, req AnswerRequest, onDelta func(string) error) error {
	greq, err := o.answerRequest(ctx, req)
	if err != nil {
		return err
	}
	return o.Stream(ctx, greq, onDelta)
}
