package video_generate

import (
	"context"
	"time"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// VideoAPI is the long-running video generation collaborator.
type VideoAPI interface {
	StartVideo(ctx context.Context, prompt string, vc gemini.VideoConfig) (string, error)
	PollVideo(ctx context.Context, operationName string) (gemini.VideoStatus, error)
	FetchVideo(ctx context.Context, uri string) ([]byte, error)
}

type Config struct {
	PollInterval time.Duration
	MaxPolls     int
	AspectRatio  string
}

type Pipeline struct {
	log    *logger.Logger
	videos repos.VideoRepo
	api    VideoAPI
	bucket gcp.BucketService
	cfg    Config
}

func New(baseLog *logger.Logger, videos repos.VideoRepo, api VideoAPI, bucket gcp.BucketService, cfg Config) *Pipeline {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 60
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = "16:9"
	}
	return &Pipeline{
		log:    baseLog.With("job", domain.JobTypeVideoGenerate),
		videos: videos,
		api:    api,
		bucket: bucket,
		cfg:    cfg,
	}
}

func (p *Pipeline) Type() string { return domain.JobTypeVideoGenerate }
