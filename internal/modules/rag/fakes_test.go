package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/data/repos/testutil"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

var keywordAxes = []string{"recursion", "graph", "sort", "tree", "python", "loop", "lab", "week"}

// keywordAPI embeds text as keyword counts so similarity is predictable.
type keywordAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	failOn string
}

type apiCall struct {
	text     string
	taskType string
}

func (k *keywordAPI) Embed(_ context.Context, text, taskType string) ([]float32, error) {
	k.mu.Lock()
	k.calls = append(k.calls, apiCall{text: text, taskType: taskType})
	k.mu.Unlock()
	if k.failOn != "" && strings.Contains(text, k.failOn) {
		return nil, errors.New("embedding api unavailable")
	}
	return keywordVector(text), nil
}

func (k *keywordAPI) callCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.calls)
}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(keywordAxes)+1)
	for i, kw := range keywordAxes {
		v[i] = float32(strings.Count(lower, kw))
	}
	v[len(keywordAxes)] = 0.05
	return v
}

type harness struct {
	db        *gorm.DB
	api       *keywordAPI
	vectors   *vectorstore.MemoryStore
	materials repos.MaterialRepo
	chunks    repos.EmbeddingChunkRepo
	store     *Store
	assembler *Assembler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	api := &keywordAPI{}
	emb := NewEmbedder(api, "test-embedding")
	h := &harness{
		db:        db,
		api:       api,
		vectors:   vectorstore.NewMemoryStore(len(keywordAxes) + 1),
		materials: repos.NewMaterialRepo(db, log),
		chunks:    repos.NewEmbeddingChunkRepo(db, log),
	}
	h.store = NewStore(StoreDeps{
		Log:       log,
		Materials: h.materials,
		Chunks:    h.chunks,
		Vectors:   h.vectors,
		Embedder:  emb,
		Config:    StoreConfig{MaxChunkSize: 2000, Overlap: 200, EmbedConcurrency: 2},
	})
	h.assembler = NewAssembler(log, h.store, emb, AssemblerConfig{DefaultLimit: 5, MinScore: 0.1})
	return h
}
