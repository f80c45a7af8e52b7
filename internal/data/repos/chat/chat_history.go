package chat

import (
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/repoerr"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type ChatHistoryRepo interface {
	Create(dbc dbctx.Context, h *domain.ChatHistory) (*domain.ChatHistory, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.ChatHistory, error)
	DeleteByUser(dbc dbctx.Context, userID string) (int64, error)
}

type chatHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ChatHistoryRepo {
	return &chatHistoryRepo{db: db, log: baseLog.With("repo", "ChatHistoryRepo")}
}

func (r *chatHistoryRepo) Create(dbc dbctx.Context, h *domain.ChatHistory) (*domain.ChatHistory, error) {
	if err := dbc.Or(r.db).Create(h).Error; err != nil {
		return nil, repoerr.Map("create chat history", err)
	}
	return h, nil
}

// ListByUser returns the newest entries first.
func (r *chatHistoryRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.ChatHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.ChatHistory
	if err := dbc.Or(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, repoerr.Map("list chat history", err)
	}
	return out, nil
}

func (r *chatHistoryRepo) DeleteByUser(dbc dbctx.Context, userID string) (int64, error) {
	res := dbc.Or(r.db).Where("user_id = ?", userID).Delete(&domain.ChatHistory{})
	if res.Error != nil {
		return 0, repoerr.Map("delete chat history", res.Error)
	}
	return res.RowsAffected, nil
}
