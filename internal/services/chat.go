package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// maxHistoryTurns bounds the conversation passed back to the model.
const maxHistoryTurns = 10

type ChatInput struct {
	Message  string
	History  []domain.ChatTurn
	Category domain.Category
	Validate bool
}

type ChatReply struct {
	Response   string                   `json:"response"`
	Sources    []domain.Source          `json:"sources"`
	Validation *domain.ValidationResult `json:"validation,omitempty"`
}

type ChatService interface {
	Chat(ctx context.Context, actorID string, in ChatInput) (*ChatReply, error)
	Stream(ctx context.Context, actorID string, in ChatInput, onDelta func(string) error) (*ChatReply, error)
	History(ctx context.Context, actorID string, limit int) ([]*domain.ChatHistory, error)
	ClearHistory(ctx context.Context, actorID string) (int64, error)
}

type chatService struct {
	log       *logger.Logger
	history   repos.ChatHistoryRepo
	rag       ContextProvider
	answerer  Answerer
	validator ResponseValidator
}

func NewChatService(baseLog *logger.Logger, history repos.ChatHistoryRepo, rag ContextProvider, answerer Answerer, validator ResponseValidator) ChatService {
	return &chatService{
		log:       baseLog.With("service", "ChatService"),
		history:   history,
		rag:       rag,
		answerer:  answerer,
		validator: validator,
	}
}

func (cs *chatService) Chat(ctx context.Context, actorID string, in ChatInput) (*ChatReply, error) {
	req, sources, err := cs.prepare(ctx, actorID, in)
	if err != nil {
		return nil, err
	}
	answer, err := cs.answerer.Answer(ctx, req)
	if err != nil {
		return nil, generation.ClassifyError(err)
	}
	return cs.finish(ctx, actorID, in, answer, sources), nil
}

func (cs *chatService) Stream(ctx context.Context, actorID string, in ChatInput, onDelta func(string) error) (*ChatReply, error) {
	req, sources, err := cs.prepare(ctx, actorID, in)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	err = cs.answerer.StreamAnswer(ctx, req, func(delta string) error {
		sb.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return nil, generation.ClassifyError(err)
	}
	return cs.finish(ctx, actorID, in, strings.TrimSpace(sb.String()), sources), nil
}

func (cs *chatService) prepare(ctx context.Context, actorID string, in ChatInput) (generation.AnswerRequest, []domain.Source, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return generation.AnswerRequest{}, nil, fmt.Errorf("%w: message is required", domain.ErrInvalidArgument)
	}
	rc, err := cs.rag.GetContext(ctx, msg, rag.ContextOptions{Category: in.Category})
	if err != nil {
		return generation.AnswerRequest{}, nil, fmt.Errorf("retrieve context: %w", err)
	}
	turns := in.History
	if len(turns) == 0 && actorID != "" {
		turns = cs.storedTurns(ctx, actorID)
	}
	return generation.AnswerRequest{
		Question: msg,
		Context:  rc.Context,
		Files:    rc.FileURLs,
		History:  toMessages(turns),
	}, rc.Sources, nil
}

// storedTurns rebuilds recent turns from persisted history, oldest first.
func (cs *chatService) storedTurns(ctx context.Context, actorID string) []domain.ChatTurn {
	rows, err := cs.history.ListByUser(dbctx.Context{Ctx: ctx}, actorID, maxHistoryTurns/2)
	if err != nil {
		cs.log.Warn("load chat history failed", "user_id", actorID, "error", err)
		return nil
	}
	turns := make([]domain.ChatTurn, 0, len(rows)*2)
	for i := len(rows) - 1; i >= 0; i-- {
		turns = append(turns,
			domain.ChatTurn{Role: domain.RoleUser, Content: rows[i].Message},
			domain.ChatTurn{Role: domain.RoleAssistant, Content: rows[i].Response},
		)
	}
	return turns
}

func (cs *chatService) finish(ctx context.Context, actorID string, in ChatInput, answer string, sources []domain.Source) *ChatReply {
	if sources == nil {
		sources = []domain.Source{}
	}
	reply := &ChatReply{Response: answer, Sources: sources}
	if in.Validate && cs.validator != nil {
		vr := cs.validator.Validate(ctx, answer, in.Message, validation.Options{})
		reply.Validation = &vr
	}
	if actorID == "" {
		return reply
	}
	rec := &domain.ChatHistory{
		UserID:   actorID,
		Message:  strings.TrimSpace(in.Message),
		Response: answer,
		Sources:  mustJSON(sources),
	}
	if reply.Validation != nil {
		rec.Validation = mustJSON(reply.Validation)
	}
	if _, err := cs.history.Create(dbctx.Context{Ctx: ctx}, rec); err != nil {
		cs.log.Warn("persist chat history failed", "user_id", actorID, "error", err)
	}
	return reply
}

func (cs *chatService) History(ctx context.Context, actorID string, limit int) ([]*domain.ChatHistory, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	return cs.history.ListByUser(dbctx.Context{Ctx: ctx}, actorID, limit)
}

func (cs *chatService) ClearHistory(ctx context.Context, actorID string) (int64, error) {
	if actorID == "" {
		return 0, domain.ErrForbidden
	}
	n, err := cs.history.DeleteByUser(dbctx.Context{Ctx: ctx}, actorID)
	if err != nil {
		return 0, err
	}
	cs.log.Info("chat history cleared", "user_id", actorID, "deleted", n)
	return n, nil
}

func toMessages(turns []domain.ChatTurn) []gemini.Message {
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	out := make([]gemini.Message, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		role := gemini.RoleUser
		if t.Role == domain.RoleAssistant {
			role = gemini.RoleAssistant
		}
		out = append(out, gemini.Message{Role: role, Content: t.Content})
	}
	return out
}
