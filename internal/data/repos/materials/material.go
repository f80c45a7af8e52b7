package materials

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type MaterialFilter struct {
	Category   domain.Category
	Type       domain.MaterialType
	Week       int
	CourseName string
	UploaderID string
	Query      string
	Limit      int
	Offset     int
}

type MaterialRepo interface {
	Create(dbc dbctx.Context, m *domain.Material) (*domain.Material, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Material, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Material, error)
	List(dbc dbctx.Context, f MaterialFilter) ([]*domain.Material, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{db: db, log: baseLog.With("repo", "MaterialRepo")}
}

func (r *materialRepo) Create(dbc dbctx.Context, m *domain.Material) (*domain.Material, error) {
	if m == nil {
		return nil, domain.ErrInvalidArgument
	}
	if err := dbc.Or(r.db).Create(m).Error; err != nil {
		return nil, repoerr.Map("create material", err)
	}
	return m, nil
}

func (r *materialRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Material, error) {
	if id == uuid.Nil {
		return nil, domain.ErrNotFound
	}
	var m domain.Material
	if err := dbc.Or(r.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, repoerr.Map("get material", err)
	}
	return &m, nil
}

func (r *materialRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Material, error) {
	var out []*domain.Material
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Or(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, repoerr.Map("get materials", err)
	}
	return out, nil
}

func (r *materialRepo) List(dbc dbctx.Context, f MaterialFilter) ([]*domain.Material, error) {
	q := dbc.Or(r.db).Model(&domain.Material{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Week > 0 {
		q = q.Where("week = ?", f.Week)
	}
	if c := strings.TrimSpace(f.CourseName); c != "" {
		q = q.Where("course_name = ?", c)
	}
	if u := strings.TrimSpace(f.UploaderID); u != "" {
		q = q.Where("uploader_id = ?", u)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Query)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(topic) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*domain.Material
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, repoerr.Map("list materials", err)
	}
	return out, nil
}

func (r *materialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return domain.ErrNotFound
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Or(r.db).Model(&domain.Material{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return repoerr.Map("update material", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *materialRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.Or(r.db).Where("id = ?", id).Delete(&domain.Material{})
	if res.Error != nil {
		return repoerr.Map("delete material", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
