package generation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type AiMaterialRepo interface {
	Create(dbc dbctx.Context, a *domain.AiMaterial) (*domain.AiMaterial, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.AiMaterial, error)
	ListByOwner(dbc dbctx.Context, ownerID string, typ string) ([]*domain.AiMaterial, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type aiMaterialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAiMaterialRepo(db *gorm.DB, baseLog *logger.Logger) AiMaterialRepo {
	return &aiMaterialRepo{db: db, log: baseLog.With("repo", "AiMaterialRepo")}
}

func (r *aiMaterialRepo) Create(dbc dbctx.Context, a *domain.AiMaterial) (*domain.AiMaterial, error) {
	if err := dbc.Or(r.db).Create(a).Error; err != nil {
		return nil, repoerr.Map("create ai material", err)
	}
	return a, nil
}

func (r *aiMaterialRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.AiMaterial, error) {
	var a domain.AiMaterial
	if err := dbc.Or(r.db).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, repoerr.Map("get ai material", err)
	}
	return &a, nil
}

func (r *aiMaterialRepo) ListByOwner(dbc dbctx.Context, ownerID string, typ string) ([]*domain.AiMaterial, error) {
	q := dbc.Or(r.db).Where("owner_id = ?", ownerID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var out []*domain.AiMaterial
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, repoerr.Map("list ai materials", err)
	}
	return out, nil
}

func (r *aiMaterialRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.Or(r.db).Where("id = ?", id).Delete(&domain.AiMaterial{})
	if res.Error != nil {
		return repoerr.Map("delete ai material", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
