package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/jobs"
	embedmaterial "github.com/yungbote/skooly-backend/internal/jobs/pipeline/embed_material"
	videogenerate "github.com/yungbote/skooly-backend/internal/jobs/pipeline/video_generate"
	"github.com/yungbote/skooly-backend/internal/jobs/runtime"
	"github.com/yungbote/skooly-backend/internal/jobs/worker"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/services"
)

// Modules are the domain engines the services delegate to.
type Modules struct {
	Index        vectorIndex
	Store        *rag.Store
	Assembler    *rag.Assembler
	Orchestrator *generation.Orchestrator
	Validator    *validation.Validator
}

type Services struct {
	Material  services.MaterialService
	Search    services.SearchService
	Embedding services.EmbeddingService
	Generate  services.GenerateService
	Chat      services.ChatService
	Community services.CommunityService
	Video     services.VideoService
	Job       services.JobService

	JobQueue  *jobs.Queue
	JobWorker *worker.Worker
}

func wireModules(ctx context.Context, log *logger.Logger, cfg Config, db *gorm.DB, driver string, reposet Repos, clients Clients) (Modules, error) {
	log.Info("Wiring modules...")

	pcfg, err := resolveVectorProviderConfig(clients.Storage.Mode, driver, cfg.Gemini.EmbeddingDim)
	if err != nil {
		return Modules{}, err
	}
	index, err := resolveVectorStore(ctx, log, pcfg, db)
	if err != nil {
		return Modules{}, err
	}

	docEmbedder := rag.NewEmbedder(clients.Gemini, clients.Gemini.EmbeddingModel())
	queryEmbedder := docEmbedder
	if clients.EmbedCache != nil {
		queryEmbedder = rag.NewCachedEmbedder(docEmbedder, clients.EmbedCache, log)
	}

	store := rag.NewStore(rag.StoreDeps{
		Log:       log,
		Materials: reposet.Material,
		Chunks:    reposet.EmbeddingChunk,
		Vectors:   index.store,
		Embedder:  docEmbedder,
		Config:    cfg.Chunking,
	})
	assembler := rag.NewAssembler(log, store, queryEmbedder, cfg.Search)

	catalog, err := generation.DefaultCatalog(log)
	if err != nil {
		return Modules{}, fmt.Errorf("load prompt catalog: %w", err)
	}
	files := generation.NewStorageFileLoader(reposet.Material, clients.Bucket, cfg.FileFetchMaxBytes, cfg.FileFetch)
	orchestrator := generation.New(log, clients.Gemini, clients.Gemini, files, catalog, cfg.Generation)

	var extractor validation.ClaimExtractor
	if se, err := validation.NewSentenceExtractor(); err != nil {
		log.Warn("Sentence tokenizer unavailable; using pattern claim extraction", "error", err)
	} else {
		extractor = se
	}
	validator := validation.New(log, clients.Gemini, assembler, extractor, cfg.Validation)

	return Modules{
		Index:        index,
		Store:        store,
		Assembler:    assembler,
		Orchestrator: orchestrator,
		Validator:    validator,
	}, nil
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, mods Modules) (Services, error) {
	log.Info("Wiring services...")

	queue := jobs.NewQueue(log, reposet.JobRun)

	registry := runtime.NewRegistry()
	if err := registry.Register(embedmaterial.New(log, reposet.Material, mods.Store)); err != nil {
		return Services{}, fmt.Errorf("register embed_material: %w", err)
	}
	if err := registry.Register(videogenerate.New(log, reposet.Video, clients.Gemini, clients.Bucket, videogenerate.Config{
		PollInterval: cfg.VideoPollInterval,
		MaxPolls:     cfg.VideoMaxPolls,
		AspectRatio:  cfg.VideoAspectRatio,
	})); err != nil {
		return Services{}, fmt.Errorf("register video_generate: %w", err)
	}
	jobWorker := worker.NewWorker(log, reposet.JobRun, registry, cfg.Worker)

	return Services{
		Material:  services.NewMaterialService(log, reposet.Material, mods.Store, clients.Bucket, queue),
		Search:    services.NewSearchService(log, mods.Assembler, mods.Orchestrator),
		Embedding: services.NewEmbeddingService(log, reposet.Material, mods.Store),
		Generate:  services.NewGenerateService(log, mods.Assembler, mods.Orchestrator, mods.Validator, clients.Bucket, reposet.AiMaterial),
		Chat:      services.NewChatService(log, reposet.ChatHistory, mods.Assembler, mods.Orchestrator, mods.Validator),
		Community: services.NewCommunityService(log, reposet.CommunityPost, mods.Assembler, mods.Orchestrator),
		Video:     services.NewVideoService(log, reposet.Video, queue, clients.Bucket),
		Job:       services.NewJobService(queue),

		JobQueue:  queue,
		JobWorker: jobWorker,
	}, nil
}
