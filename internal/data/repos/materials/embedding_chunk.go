package materials

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type EmbeddingChunkRepo interface {
	// Replace deletes every chunk of the material and inserts the given set.
	// Returns the ids of the removed chunks.
	Replace(dbc dbctx.Context, materialID uuid.UUID, chunks []*domain.EmbeddingChunk) ([]uuid.UUID, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.EmbeddingChunk, error)
	ListByMaterial(dbc dbctx.Context, materialID uuid.UUID) ([]*domain.EmbeddingChunk, error)
	DeleteByMaterial(dbc dbctx.Context, materialID uuid.UUID) ([]uuid.UUID, error)
	CountByMaterial(dbc dbctx.Context) (map[uuid.UUID]int, error)
	// ListPage walks every chunk in a stable order, for index rebuilds.
	ListPage(dbc dbctx.Context, offset, limit int) ([]*domain.EmbeddingChunk, error)
}

type embeddingChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingChunkRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingChunkRepo {
	return &embeddingChunkRepo{db: db, log: baseLog.With("repo", "EmbeddingChunkRepo")}
}

func (r *embeddingChunkRepo) Replace(dbc dbctx.Context, materialID uuid.UUID, chunks []*domain.EmbeddingChunk) ([]uuid.UUID, error) {
	if materialID == uuid.Nil {
		return nil, domain.ErrInvalidArgument
	}
	var removed []uuid.UUID
	err := dbc.Or(r.db).Transaction(func(txx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: txx}
		ids, err := r.DeleteByMaterial(inner, materialID)
		if err != nil {
			return err
		}
		removed = ids
		if len(chunks) == 0 {
			return nil
		}
		for _, c := range chunks {
			c.MaterialID = materialID
		}
		// Content can be large.
		const batchSize = 100
		if err := txx.CreateInBatches(chunks, batchSize).Error; err != nil {
			return repoerr.Map("insert chunks", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *embeddingChunkRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.EmbeddingChunk, error) {
	var out []*domain.EmbeddingChunk
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Or(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, repoerr.Map("get chunks", err)
	}
	return out, nil
}

func (r *embeddingChunkRepo) ListByMaterial(dbc dbctx.Context, materialID uuid.UUID) ([]*domain.EmbeddingChunk, error) {
	var out []*domain.EmbeddingChunk
	if err := dbc.Or(r.db).
		Where("material_id = ?", materialID).
		Order("chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, repoerr.Map("list chunks", err)
	}
	return out, nil
}

func (r *embeddingChunkRepo) DeleteByMaterial(dbc dbctx.Context, materialID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	tx := dbc.Or(r.db)
	if err := tx.Model(&domain.EmbeddingChunk{}).
		Where("material_id = ?", materialID).
		Pluck("id", &ids).Error; err != nil {
		return nil, repoerr.Map("list chunk ids", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if err := tx.Where("material_id = ?", materialID).Delete(&domain.EmbeddingChunk{}).Error; err != nil {
		return nil, repoerr.Map("delete chunks", err)
	}
	return ids, nil
}

func (r *embeddingChunkRepo) CountByMaterial(dbc dbctx.Context) (map[uuid.UUID]int, error) {
	type row struct {
		MaterialID uuid.UUID
		N          int
	}
	var rows []row
	if err := dbc.Or(r.db).Model(&domain.EmbeddingChunk{}).
		Select("material_id, COUNT(*) AS n").
		Group("material_id").
		Scan(&rows).Error; err != nil {
		return nil, repoerr.Map("count chunks", err)
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.MaterialID] = r.N
	}
	return out, nil
}

func (r *embeddingChunkRepo) ListPage(dbc dbctx.Context, offset, limit int) ([]*domain.EmbeddingChunk, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []*domain.EmbeddingChunk
	if err := dbc.Or(r.db).
		Order("material_id ASC, chunk_index ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, repoerr.Map("list chunk page", err)
	}
	return out, nil
}
