package embed_material

import (
	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type Pipeline struct {
	log       *logger.Logger
	materials repos.MaterialRepo
	store     *rag.Store
}

func New(baseLog *logger.Logger, materials repos.MaterialRepo, store *rag.Store) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", domain.JobTypeEmbedMaterial),
		materials: materials,
		store:     store,
	}
}

func (p *Pipeline) Type() string { return domain.JobTypeEmbedMaterial }
