package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/jobs"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const videoEntityType = "video"

var allowedAspectRatios = map[string]bool{"16:9": true, "9:16": true}

type CreateVideoInput struct {
	Title       string
	Prompt      string
	AspectRatio string
}

type VideoService interface {
	Create(ctx context.Context, actorID string, in CreateVideoInput) (*domain.VideoMaterial, *domain.JobRun, error)
	Get(ctx context.Context, actorID string, id uuid.UUID) (*domain.VideoMaterial, error)
	List(ctx context.Context, actorID string) ([]*domain.VideoMaterial, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
}

type videoService struct {
	log    *logger.Logger
	videos repos.VideoRepo
	jobs   JobSubmitter
	bucket gcp.BucketService
}

func NewVideoService(baseLog *logger.Logger, videos repos.VideoRepo, jobs JobSubmitter, bucket gcp.BucketService) VideoService {
	return &videoService{
		log:    baseLog.With("service", "VideoService"),
		videos: videos,
		jobs:   jobs,
		bucket: bucket,
	}
}

// Create stores a pending video and queues its generation job. It does not wait for the video.
func (vs *videoService) Create(ctx context.Context, actorID string, in CreateVideoInput) (*domain.VideoMaterial, *domain.JobRun, error) {
	if actorID == "" {
		return nil, nil, domain.ErrForbidden
	}
	prompt := strings.TrimSpace(in.Prompt)
	title := strings.TrimSpace(in.Title)
	if prompt == "" || title == "" {
		return nil, nil, fmt.Errorf("%w: title and prompt are required", domain.ErrInvalidArgument)
	}
	aspect := strings.TrimSpace(in.AspectRatio)
	if aspect != "" && !allowedAspectRatios[aspect] {
		return nil, nil, fmt.Errorf("%w: unsupported aspect ratio %q", domain.ErrInvalidArgument, aspect)
	}

	dbc := dbctx.Context{Ctx: ctx}
	v, err := vs.videos.Create(dbc, &domain.VideoMaterial{
		OwnerID:     actorID,
		Title:       title,
		Prompt:      prompt,
		AspectRatio: aspect,
		Status:      domain.VideoPending,
	})
	if err != nil {
		return nil, nil, err
	}

	job, err := vs.jobs.Submit(ctx, jobs.Spec{
		Type:        domain.JobTypeVideoGenerate,
		OwnerUserID: actorID,
		EntityType:  videoEntityType,
		EntityID:    v.ID,
		Payload:     map[string]any{"video_id": v.ID.String()},
	})
	if err != nil {
		msg := "could not queue video generation"
		if uerr := vs.videos.UpdateFields(dbc, v.ID, map[string]interface{}{
			"status": domain.VideoFailed,
			"error":  msg,
		}); uerr != nil {
			vs.log.Error("mark video failed", "video_id", v.ID, "error", uerr)
		}
		return nil, nil, fmt.Errorf("submit video job: %w", err)
	}
	if err := vs.videos.UpdateFields(dbc, v.ID, map[string]interface{}{"job_id": job.ID}); err != nil {
		vs.log.Warn("link video job failed", "video_id", v.ID, "job_id", job.ID, "error", err)
	} else {
		v.JobID = &job.ID
	}
	vs.log.Info("video queued", "video_id", v.ID, "job_id", job.ID)
	return v, job, nil
}

func (vs *videoService) Get(ctx context.Context, actorID string, id uuid.UUID) (*domain.VideoMaterial, error) {
	v, err := vs.videos.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(actorID, v.OwnerID); err != nil {
		return nil, err
	}
	return v, nil
}

func (vs *videoService) List(ctx context.Context, actorID string) ([]*domain.VideoMaterial, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	return vs.videos.ListByOwner(dbctx.Context{Ctx: ctx}, actorID)
}

func (vs *videoService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	v, err := vs.videos.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if err := requireOwner(actorID, v.OwnerID); err != nil {
		return err
	}
	if err := vs.videos.Delete(dbc, id); err != nil {
		return err
	}
	if v.StoragePublicID != "" && vs.bucket != nil {
		if err := vs.bucket.Delete(ctx, v.StoragePublicID, gcp.ResourceVideo); err != nil {
			vs.log.Warn("delete stored video failed", "video_id", id, "public_id", v.StoragePublicID, "error", err)
		}
	}
	return nil
}
