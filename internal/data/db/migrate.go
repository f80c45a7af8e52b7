package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Materials + retrieval
		&domain.Material{},
		&domain.EmbeddingChunk{},

		// Conversation + community
		&domain.ChatHistory{},
		&domain.CommunityPost{},
		&domain.CommunityReply{},

		// Generated artifacts
		&domain.AiMaterial{},
		&domain.VideoMaterial{},

		// Jobs
		&domain.JobRun{},
	)
}
