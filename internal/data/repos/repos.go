package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos/chat"
	"github.com/yungbote/skooly-backend/internal/data/repos/community"
	"github.com/yungbote/skooly-backend/internal/data/repos/generation"
	"github.com/yungbote/skooly-backend/internal/data/repos/jobs"
	"github.com/yungbote/skooly-backend/internal/data/repos/materials"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type MaterialRepo = materials.MaterialRepo
type MaterialFilter = materials.MaterialFilter
type EmbeddingChunkRepo = materials.EmbeddingChunkRepo

type ChatHistoryRepo = chat.ChatHistoryRepo
type CommunityPostRepo = community.PostRepo

type AiMaterialRepo = generation.AiMaterialRepo
type VideoRepo = generation.VideoRepo

type JobRunRepo = jobs.JobRunRepo

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return materials.NewMaterialRepo(db, baseLog)
}
func NewEmbeddingChunkRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingChunkRepo {
	return materials.NewEmbeddingChunkRepo(db, baseLog)
}
func NewChatHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ChatHistoryRepo {
	return chat.NewChatHistoryRepo(db, baseLog)
}
func NewCommunityPostRepo(db *gorm.DB, baseLog *logger.Logger) CommunityPostRepo {
	return community.NewPostRepo(db, baseLog)
}
func NewAiMaterialRepo(db *gorm.DB, baseLog *logger.Logger) AiMaterialRepo {
	return generation.NewAiMaterialRepo(db, baseLog)
}
func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return generation.NewVideoRepo(db, baseLog)
}
func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
