package rag

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// EmbeddingAPI is the hosted embedding endpoint.
type EmbeddingAPI interface {
	Embed(ctx context.Context, text, taskType string) ([]float32, error)
}

// Embedder produces document and query vectors from one model. Documents
// and queries use different task types.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type embedder struct {
	api   EmbeddingAPI
	model string
}

func NewEmbedder(api EmbeddingAPI, model string) Embedder {
	return &embedder{api: api, model: model}
}

func (e *embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	v, err := e.api.Embed(ctx, text, gemini.TaskRetrievalDocument)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	return v, nil
}

func (e *embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.api.Embed(ctx, text, gemini.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return v, nil
}

func (e *embedder) Model() string { return e.model }

// ByteCache is the subset of the redis cache used for query vectors.
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

type cachedEmbedder struct {
	Embedder
	cache ByteCache
	log   *logger.Logger
}

// NewCachedEmbedder caches query vectors. Document vectors are persisted
// with their chunks and are not cached.
func NewCachedEmbedder(inner Embedder, cache ByteCache, log *logger.Logger) Embedder {
	return &cachedEmbedder{Embedder: inner, cache: cache, log: log.With("component", "CachedEmbedder")}
}

func (e *cachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := QueryCacheKey(e.Model(), text)
	if raw, ok, err := e.cache.Get(ctx, key); err != nil {
		e.log.Warn("query embedding cache read failed", "error", err)
	} else if ok {
		if v, ok := decodeVector(raw); ok {
			return v, nil
		}
	}
	v, err := e.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, key, encodeVector(v)); err != nil {
		e.log.Warn("query embedding cache write failed", "error", err)
	}
	return v, nil
}

func QueryCacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embq:" + model + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(raw []byte) ([]float32, bool) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, true
}
