package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/jobs"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
)

// JobSubmitter enqueues background work.
type JobSubmitter interface {
	Submit(ctx context.Context, spec jobs.Spec) (*domain.JobRun, error)
}

// ContextProvider retrieves grounding for a query.
type ContextProvider interface {
	GetContext(ctx context.Context, query string, opts rag.ContextOptions) (*rag.RAGContext, error)
	Search(ctx context.Context, query string, opts rag.ContextOptions) ([]domain.Source, error)
}

// Answerer produces grounded answers.
type Answerer interface {
	Answer(ctx context.Context, req generation.AnswerRequest) (string, error)
	StreamAnswer(ctx context.Context, req generation.AnswerRequest, onDelta func(string) error) error
}

// Generator produces typed study content.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// ResponseValidator scores an answer against its query.
type ResponseValidator interface {
	Validate(ctx context.Context, response, query string, opts validation.Options) domain.ValidationResult
}

// EmbeddingIndex is the slice of the embedding store services write through.
type EmbeddingIndex interface {
	EmbedMaterial(ctx context.Context, m *domain.Material, force bool) rag.EmbedReport
	DeleteMaterial(ctx context.Context, materialID uuid.UUID) (int, error)
	Stats(ctx context.Context) (rag.Stats, error)
}

// requireOwner rejects a mutation by anyone but the stored owner.
func requireOwner(actorID, ownerID string) error {
	if actorID == "" || actorID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}
