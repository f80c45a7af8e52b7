package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// Spec describes one unit of background work.
type Spec struct {
	Type        string
	OwnerUserID string
	EntityType  string
	EntityID    uuid.UUID
	Payload     map[string]any
}

// Queue is the submit/poll surface over job_run. Workers complete jobs.
type Queue struct {
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewQueue(baseLog *logger.Logger, repo repos.JobRunRepo) *Queue {
	return &Queue{log: baseLog.With("component", "JobQueue"), repo: repo}
}

// Submit inserts a queued job. Trace ids on ctx travel in the payload so the
// worker's logs join the originating request.
func (q *Queue) Submit(ctx context.Context, spec Spec) (*domain.JobRun, error) {
	if strings.TrimSpace(spec.Type) == "" {
		return nil, fmt.Errorf("%w: job type is required", domain.ErrInvalidArgument)
	}
	payload := make(map[string]any, len(spec.Payload)+2)
	for k, v := range spec.Payload {
		payload[k] = v
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	job := &domain.JobRun{
		OwnerUserID: spec.OwnerUserID,
		JobType:     spec.Type,
		EntityType:  spec.EntityType,
		Status:      domain.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON(raw),
	}
	if spec.EntityID != uuid.Nil {
		id := spec.EntityID
		job.EntityID = &id
	}
	if _, err := q.repo.Create(dbctx.Context{Ctx: ctx}, []*domain.JobRun{job}); err != nil {
		return nil, err
	}
	observability.Current().ObserveJob(job.JobType, domain.JobStatusQueued)
	q.log.Debug("job submitted", "job_id", job.ID, "job_type", job.JobType, "entity_id", spec.EntityID)
	return job, nil
}

// SubmitUnique skips the insert when the entity already has a queued or running job of the type.
func (q *Queue) SubmitUnique(ctx context.Context, spec Spec) (*domain.JobRun, bool, error) {
	if spec.EntityID != uuid.Nil && spec.EntityType != "" {
		busy, err := q.repo.HasRunnableForEntity(dbctx.Context{Ctx: ctx}, spec.EntityType, spec.EntityID, spec.Type)
		if err != nil {
			return nil, false, err
		}
		if busy {
			job, err := q.repo.GetLatestByEntity(dbctx.Context{Ctx: ctx}, spec.EntityType, spec.EntityID, spec.Type)
			return job, false, err
		}
	}
	job, err := q.Submit(ctx, spec)
	return job, err == nil, err
}

// Get returns the job when ownerID owns it.
func (q *Queue) Get(ctx context.Context, id uuid.UUID, ownerID string) (*domain.JobRun, error) {
	job, err := q.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerUserID != ownerID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}
