package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/platform/apierr"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type GenerateInput struct {
	Type          generation.ContentType
	Title         string
	Topic         string
	SourceContent string
	FileURL       string
	Query         string
	Category      domain.Category
	Customization string
	Save          bool
	Validate      bool
}

type GenerateOutput struct {
	Type            generation.ContentType   `json:"type"`
	Content         string                   `json:"content"`
	Questions       []generation.MCQuestion  `json:"questions,omitempty"`
	AudioURL        string                   `json:"audioUrl,omitempty"`
	DurationSeconds float64                  `json:"durationSeconds,omitempty"`
	Sources         []domain.Source          `json:"sources"`
	Validation      *domain.ValidationResult `json:"validation,omitempty"`
	Saved           *domain.AiMaterial       `json:"saved,omitempty"`
}

type GenerateService interface {
	Generate(ctx context.Context, actorID string, in GenerateInput) (*GenerateOutput, error)
	ListSaved(ctx context.Context, actorID string, typ string) ([]*domain.AiMaterial, error)
	DeleteSaved(ctx context.Context, actorID string, id uuid.UUID) error
}

type generateService struct {
	log       *logger.Logger
	rag       ContextProvider
	generator Generator
	validator ResponseValidator
	bucket    gcp.BucketService
	saved     repos.AiMaterialRepo
}

func NewGenerateService(baseLog *logger.Logger, rag ContextProvider, generator Generator, validator ResponseValidator, bucket gcp.BucketService, saved repos.AiMaterialRepo) GenerateService {
	return &generateService{
		log:       baseLog.With("service", "GenerateService"),
		rag:       rag,
		generator: generator,
		validator: validator,
		bucket:    bucket,
		saved:     saved,
	}
}

func (gs *generateService) Generate(ctx context.Context, actorID string, in GenerateInput) (*GenerateOutput, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidArgument, in.Type)
	}
	if (in.Save || strings.TrimSpace(in.FileURL) != "") && actorID == "" {
		return nil, domain.ErrForbidden
	}

	req := generation.Request{
		Type: in.Type,
		Input: generation.PromptInput{
			Title:         strings.TrimSpace(in.Title),
			Topic:         strings.TrimSpace(in.Topic),
			Customization: strings.TrimSpace(in.Customization),
		},
	}
	sources := []domain.Source{}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		query = strings.TrimSpace(strings.Join([]string{in.Title, in.Topic}, " "))
	}

	switch {
	case strings.TrimSpace(in.SourceContent) != "" || strings.TrimSpace(in.FileURL) != "":
		req.Input.Context = strings.TrimSpace(in.SourceContent)
		if u := strings.TrimSpace(in.FileURL); u != "" {
			req.Files = []domain.FileSource{{URL: u, Title: req.Input.Title}}
		}
	case query != "":
		rc, err := gs.rag.GetContext(ctx, query, rag.ContextOptions{Category: in.Category})
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		req.Input.Context = rc.Context
		req.Files = rc.FileURLs
		sources = rc.Sources
	default:
		return nil, fmt.Errorf("%w: provide sourceContent, fileUrl, query, title or topic", domain.ErrInvalidArgument)
	}

	res, err := gs.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return nil, err
		}
		return nil, generation.ClassifyError(err)
	}
	out := &GenerateOutput{Type: res.Type, Content: res.Content, Questions: res.Questions, Sources: sources}

	if res.Audio != nil {
		obj, err := gs.bucket.Upload(ctx, gcp.UploadInput{
			Folder:      "podcasts",
			Kind:        gcp.ResourceAudio,
			Filename:    "podcast.wav",
			ContentType: "audio/wav",
			Body:        bytes.NewReader(res.Audio.WAV),
		})
		if err != nil {
			return nil, apierr.New(http.StatusBadGateway, "storage_failed", fmt.Errorf("podcast audio upload failed: %w", err))
		}
		out.AudioURL = obj.URL
		out.DurationSeconds = res.Audio.Duration.Seconds()
	}

	if in.Validate && gs.validator != nil {
		vr := gs.validator.Validate(ctx, res.Content, query, validation.Options{})
		out.Validation = &vr
	}

	if in.Save {
		rec := &domain.AiMaterial{
			OwnerID:  actorID,
			Type:     string(res.Type),
			Title:    req.Input.Title,
			Topic:    req.Input.Topic,
			Content:  res.Content,
			AudioURL: out.AudioURL,
			Sources:  mustJSON(sources),
		}
		if rec.Title == "" {
			rec.Title = firstNonEmpty(req.Input.Topic, query, "Untitled "+string(res.Type))
		}
		saved, err := gs.saved.Create(dbctx.Context{Ctx: ctx}, rec)
		if err != nil {
			return nil, fmt.Errorf("save generated material: %w", err)
		}
		out.Saved = saved
	}
	gs.log.Info("content generated", "type", res.Type, "sources", len(sources), "saved", in.Save)
	return out, nil
}

func (gs *generateService) ListSaved(ctx context.Context, actorID string, typ string) ([]*domain.AiMaterial, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	return gs.saved.ListByOwner(dbctx.Context{Ctx: ctx}, actorID, typ)
}

func (gs *generateService) DeleteSaved(ctx context.Context, actorID string, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	rec, err := gs.saved.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if err := requireOwner(actorID, rec.OwnerID); err != nil {
		return err
	}
	return gs.saved.Delete(dbc, id)
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
