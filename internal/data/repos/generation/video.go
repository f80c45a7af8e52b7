package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, v *domain.VideoMaterial) (*domain.VideoMaterial, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.VideoMaterial, error)
	ListByOwner(dbc dbctx.Context, ownerID string) ([]*domain.VideoMaterial, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) Create(dbc dbctx.Context, v *domain.VideoMaterial) (*domain.VideoMaterial, error) {
	if v.Status == "" {
		v.Status = domain.VideoPending
	}
	if err := dbc.Or(r.db).Create(v).Error; err != nil {
		return nil, repoerr.Map("create video", err)
	}
	return v, nil
}

func (r *videoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.VideoMaterial, error) {
	var v domain.VideoMaterial
	if err := dbc.Or(r.db).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, repoerr.Map("get video", err)
	}
	return &v, nil
}

func (r *videoRepo) ListByOwner(dbc dbctx.Context, ownerID string) ([]*domain.VideoMaterial, error) {
	var out []*domain.VideoMaterial
	if err := dbc.Or(r.db).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, repoerr.Map("list videos", err)
	}
	return out, nil
}

func (r *videoRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Or(r.db).Model(&domain.VideoMaterial{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return repoerr.Map("update video", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *videoRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.Or(r.db).Where("id = ?", id).Delete(&domain.VideoMaterial{})
	if res.Error != nil {
		return repoerr.Map("delete video", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
