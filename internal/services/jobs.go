package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
)

// JobReader loads a job for its owner.
type JobReader interface {
	Get(ctx context.Context, id uuid.UUID, ownerID string) (*domain.JobRun, error)
}

type JobService interface {
	Get(ctx context.Context, actorID string, id uuid.UUID) (*domain.JobRun, error)
}

type jobService struct {
	jobs JobReader
}

func NewJobService(jobs JobReader) JobService {
	return &jobService{jobs: jobs}
}

func (js *jobService) Get(ctx context.Context, actorID string, id uuid.UUID) (*domain.JobRun, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	return js.jobs.Get(ctx, id, actorID)
}
