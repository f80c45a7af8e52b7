package community

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type PostRepo interface {
	Create(dbc dbctx.Context, p *domain.CommunityPost) (*domain.CommunityPost, error)
	GetByID(dbc dbctx.Context, id uuid.UUID, withReplies bool) (*domain.CommunityPost, error)
	List(dbc dbctx.Context, category domain.Category, limit, offset int) ([]*domain.CommunityPost, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	AddReply(dbc dbctx.Context, r *domain.CommunityReply) (*domain.CommunityReply, error)
}

type postRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo {
	return &postRepo{db: db, log: baseLog.With("repo", "CommunityPostRepo")}
}

func (r *postRepo) Create(dbc dbctx.Context, p *domain.CommunityPost) (*domain.CommunityPost, error) {
	if err := dbc.Or(r.db).Omit("Replies").Create(p).Error; err != nil {
		return nil, repoerr.Map("create post", err)
	}
	return p, nil
}

func (r *postRepo) GetByID(dbc dbctx.Context, id uuid.UUID, withReplies bool) (*domain.CommunityPost, error) {
	q := dbc.Or(r.db)
	if withReplies {
		q = q.Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	}
	var p domain.CommunityPost
	if err := q.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, repoerr.Map("get post", err)
	}
	return &p, nil
}

func (r *postRepo) List(dbc dbctx.Context, category domain.Category, limit, offset int) ([]*domain.CommunityPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := dbc.Or(r.db).Model(&domain.CommunityPost{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []*domain.CommunityPost
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, repoerr.Map("list posts", err)
	}
	return out, nil
}

// Delete removes the post and its replies.
func (r *postRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.Or(r.db).Transaction(func(txx *gorm.DB) error {
		res := txx.Where("id = ?", id).Delete(&domain.CommunityPost{})
		if res.Error != nil {
			return repoerr.Map("delete post", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := txx.Where("post_id = ?", id).Delete(&domain.CommunityReply{}).Error; err != nil {
			return repoerr.Map("delete replies", err)
		}
		return nil
	})
}

func (r *postRepo) AddReply(dbc dbctx.Context, reply *domain.CommunityReply) (*domain.CommunityReply, error) {
	if err := dbc.Or(r.db).Create(reply).Error; err != nil {
		return nil, repoerr.Map("create reply", err)
	}
	return reply, nil
}
