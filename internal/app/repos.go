package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type Repos struct {
	Material       repos.MaterialRepo
	EmbeddingChunk repos.EmbeddingChunkRepo
	ChatHistory    repos.ChatHistoryRepo
	CommunityPost  repos.CommunityPostRepo
	AiMaterial     repos.AiMaterialRepo
	Video          repos.VideoRepo
	JobRun         repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Material:       repos.NewMaterialRepo(db, log),
		EmbeddingChunk: repos.NewEmbeddingChunkRepo(db, log),
		ChatHistory:    repos.NewChatHistoryRepo(db, log),
		CommunityPost:  repos.NewCommunityPostRepo(db, log),
		AiMaterial:     repos.NewAiMaterialRepo(db, log),
		Video:          repos.NewVideoRepo(db, log),
		JobRun:         repos.NewJobRunRepo(db, log),
	}
}
