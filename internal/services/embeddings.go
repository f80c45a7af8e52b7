package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type EmbeddingService interface {
	// Backfill embeds the named materials, or every material when ids is
	// empty. Materials that already have chunks are skipped unless force.
	Backfill(ctx context.Context, ids []uuid.UUID, force bool) ([]rag.EmbedReport, error)
	Stats(ctx context.Context) (rag.Stats, error)
}

type embeddingService struct {
	log       *logger.Logger
	materials repos.MaterialRepo
	index     EmbeddingIndex
}

func NewEmbeddingService(baseLog *logger.Logger, materials repos.MaterialRepo, index EmbeddingIndex) EmbeddingService {
	return &embeddingService{log: baseLog.With("service", "EmbeddingService"), materials: materials, index: index}
}

func (es *embeddingService) Backfill(ctx context.Context, ids []uuid.UUID, force bool) ([]rag.EmbedReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		materials []*domain.Material
		err       error
	)
	if len(ids) > 0 {
		materials, err = es.materials.GetByIDs(dbc, ids)
	} else {
		materials, err = es.materials.List(dbc, repos.MaterialFilter{})
	}
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}

	reports := make([]rag.EmbedReport, 0, len(materials)+len(ids))
	found := make(map[uuid.UUID]bool, len(materials))
	counts := map[rag.EmbedStatus]int{}
	for _, m := range materials {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		found[m.ID] = true
		rep := es.index.EmbedMaterial(ctx, m, force)
		if rep.Status == rag.EmbedStatusFailed {
			es.log.Warn("backfill material failed", "material_id", m.ID, "error", rep.Error)
		}
		counts[rep.Status]++
		reports = append(reports, rep)
	}
	for _, id := range ids {
		if !found[id] {
			reports = append(reports, rag.EmbedReport{MaterialID: id, Status: rag.EmbedStatusFailed, Error: domain.ErrNotFound.Error()})
			counts[rag.EmbedStatusFailed]++
		}
	}
	es.log.Info("embedding backfill finished",
		"materials", len(reports),
		"embedded", counts[rag.EmbedStatusEmbedded],
		"skipped", counts[rag.EmbedStatusSkipped],
		"no_content", counts[rag.EmbedStatusNoContent],
		"failed", counts[rag.EmbedStatusFailed],
		"force", force,
	)
	return reports, nil
}

func (es *embeddingService) Stats(ctx context.Context) (rag.Stats, error) {
	return es.index.Stats(ctx)
}
