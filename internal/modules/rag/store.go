package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/ingestion/parser"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

// VectorNamespace holds one vector per embedding chunk, keyed by chunk id.
const VectorNamespace = "chunks"

var (
	// ErrNoContent means the material has neither text nor a file to embed.
	ErrNoContent = errors.New("material has no content to embed")
	// ErrNothingEmbedded means every chunk failed to embed; existing chunks are kept.
	ErrNothingEmbedded = errors.New("no chunk could be embedded")
)

type StoreConfig struct {
	MaxChunkSize     int
	Overlap          int
	EmbedConcurrency int
}

type StoreDeps struct {
	Log       *logger.Logger
	Materials repos.MaterialRepo
	Chunks    repos.EmbeddingChunkRepo
	Vectors   vectorstore.VectorStore
	Embedder  Embedder
	Config    StoreConfig
}

// Store persists embedding chunks and answers similarity queries. Chunk rows
// live in the database; vectors live in the configured index.
type Store struct {
	log       *logger.Logger
	materials repos.MaterialRepo
	chunks    repos.EmbeddingChunkRepo
	vectors   vectorstore.VectorStore
	embedder  Embedder
	cfg       StoreConfig
}

func NewStore(deps StoreDeps) *Store {
	cfg := deps.Config
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = parser.DefaultMaxChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	return &Store{
		log:       deps.Log.With("service", "EmbeddingStore"),
		materials: deps.Materials,
		chunks:    deps.Chunks,
		vectors:   deps.Vectors,
		embedder:  deps.Embedder,
		cfg:       cfg,
	}
}

type pendingChunk struct {
	index     int
	content   string
	embedText string
}

// UpsertChunks replaces the material's chunk set with the given chunks and
// returns how many were embedded. File-reference content collapses to one
// chunk whose vector comes from the metadata, not the file.
func (s *Store) UpsertChunks(ctx context.Context, materialID uuid.UUID, chunks []string, meta domain.ChunkMetadata) (int, error) {
	if materialID == uuid.Nil {
		return 0, domain.ErrInvalidArgument
	}
	pending := prepareChunks(chunks, meta)
	if len(pending) == 0 {
		return 0, ErrNoContent
	}

	vecs := make([][]float32, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i, p := range pending {
		g.Go(func() error {
			v, err := s.embedder.EmbedDocument(gctx, p.embedText)
			if err != nil {
				s.log.Warn("chunk embedding failed; dropping chunk",
					"material_id", materialID, "chunk_index", p.index, "error", err)
				return nil
			}
			vecs[i] = v
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rows := make([]*domain.EmbeddingChunk, 0, len(pending))
	points := make([]vectorstore.Vector, 0, len(pending))
	for i, p := range pending {
		if len(vecs[i]) == 0 {
			continue
		}
		row := &domain.EmbeddingChunk{
			ID:         uuid.New(),
			MaterialID: materialID,
			ChunkIndex: p.index,
			Content:    p.content,
			Model:      s.embedder.Model(),
		}
		row.SetVector(vecs[i])
		row.SetMeta(meta)
		rows = append(rows, row)
		points = append(points, vectorstore.Vector{ID: row.ID.String(), Values: vecs[i], Metadata: vectorMetadata(row, meta)})
	}
	m := observability.Current()
	m.ObserveEmbeddedChunks("embedded", len(rows))
	m.ObserveEmbeddedChunks("failed", len(pending)-len(rows))
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: material %s (%d chunks)", ErrNothingEmbedded, materialID, len(pending))
	}

	if err := s.vectors.Upsert(ctx, VectorNamespace, points); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	removed, err := s.chunks.Replace(dbctx.Context{Ctx: ctx}, materialID, rows)
	if err != nil {
		if delErr := s.vectors.DeleteIDs(ctx, VectorNamespace, vectorIDs(points)); delErr != nil {
			s.log.Warn("orphan vector cleanup failed", "material_id", materialID, "error", delErr)
		}
		return 0, fmt.Errorf("replace chunks: %w", err)
	}
	if len(removed) > 0 {
		if err := s.vectors.DeleteIDs(ctx, VectorNamespace, uuidStrings(removed)); err != nil {
			s.log.Warn("stale vector cleanup failed", "material_id", materialID, "count", len(removed), "error", err)
		}
	}
	s.log.Debug("material embedded", "material_id", materialID, "chunks", len(rows), "dropped", len(pending)-len(rows))
	return len(rows), nil
}

// ReplaceChunks re-chunks and re-embeds a material from its stored content.
func (s *Store) ReplaceChunks(ctx context.Context, m *domain.Material) (int, error) {
	if m == nil {
		return 0, domain.ErrInvalidArgument
	}
	switch body := m.Body().(type) {
	case domain.FileReference:
		return s.UpsertChunks(ctx, m.ID, []string{domain.EncodeContent(body)}, m.Snapshot())
	case domain.TextContent:
		chunks := parser.ChunkText(body.Text, s.cfg.MaxChunkSize, s.cfg.Overlap)
		if len(chunks) == 0 {
			return 0, ErrNoContent
		}
		return s.UpsertChunks(ctx, m.ID, chunks, m.Snapshot())
	default:
		return 0, ErrNoContent
	}
}

// DeleteMaterial removes every chunk and vector of the material.
func (s *Store) DeleteMaterial(ctx context.Context, materialID uuid.UUID) (int, error) {
	ids, err := s.chunks.DeleteByMaterial(dbctx.Context{Ctx: ctx}, materialID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.vectors.DeleteIDs(ctx, VectorNamespace, uuidStrings(ids)); err != nil {
		return len(ids), fmt.Errorf("delete vectors: %w", err)
	}
	return len(ids), nil
}

func (s *Store) HasEmbeddings(ctx context.Context, materialID uuid.UUID) (bool, error) {
	rows, err := s.chunks.ListByMaterial(dbctx.Context{Ctx: ctx}, materialID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

type SearchOptions struct {
	Limit    int
	Category domain.Category
	MinScore float64
}

// SearchHit pairs a chunk with the current state of its material.
type SearchHit struct {
	ChunkID    uuid.UUID
	MaterialID uuid.UUID
	ChunkIndex int
	Content    string
	Snapshot   domain.ChunkMetadata
	Material   domain.ChunkMetadata
	Score      float64
}

// SimilaritySearch over-fetches 2x limit candidates, drops those under
// MinScore or whose material is gone or no longer in the category, and
// truncates to limit.
func (s *Store) SimilaritySearch(ctx context.Context, q []float32, opts SearchOptions) ([]SearchHit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	var filter map[string]any
	if opts.Category != "" {
		filter = map[string]any{"category": string(opts.Category)}
	}
	matches, err := s.vectors.QueryMatches(ctx, VectorNamespace, q, 2*limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	kept := make([]vectorstore.VectorMatch, 0, len(matches))
	chunkIDs := make([]uuid.UUID, 0, len(matches))
	for _, mt := range matches {
		if mt.Score < opts.MinScore {
			continue
		}
		id, err := uuid.Parse(mt.ID)
		if err != nil {
			continue
		}
		kept = append(kept, mt)
		chunkIDs = append(chunkIDs, id)
	}
	if len(kept) == 0 {
		return []SearchHit{}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	chunkRows, err := s.chunks.GetByIDs(dbc, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.EmbeddingChunk, len(chunkRows))
	materialIDs := make([]uuid.UUID, 0, len(chunkRows))
	seenMaterial := map[uuid.UUID]bool{}
	for _, c := range chunkRows {
		byID[c.ID] = c
		if !seenMaterial[c.MaterialID] {
			seenMaterial[c.MaterialID] = true
			materialIDs = append(materialIDs, c.MaterialID)
		}
	}
	mats, err := s.materials.GetByIDs(dbc, materialIDs)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	matByID := make(map[uuid.UUID]*domain.Material, len(mats))
	for _, m := range mats {
		matByID[m.ID] = m
	}

	hits := make([]SearchHit, 0, limit)
	for i, mt := range kept {
		c := byID[chunkIDs[i]]
		if c == nil {
			continue
		}
		m := matByID[c.MaterialID]
		if m == nil {
			continue
		}
		if opts.Category != "" && m.Category != opts.Category {
			continue
		}
		hits = append(hits, SearchHit{
			ChunkID:    c.ID,
			MaterialID: c.MaterialID,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Snapshot:   c.Meta(),
			Material:   m.Snapshot(),
			Score:      mt.Score,
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// Warm loads every persisted chunk vector into the index. Used when the
// index does not survive restarts.
func (s *Store) Warm(ctx context.Context) (int, error) {
	const page = 500
	total := 0
	for offset := 0; ; offset += page {
		rows, err := s.chunks.ListPage(dbctx.Context{Ctx: ctx}, offset, page)
		if err != nil {
			return total, fmt.Errorf("warm index: %w", err)
		}
		points := make([]vectorstore.Vector, 0, len(rows))
		for _, r := range rows {
			v := r.Vector()
			if len(v) == 0 {
				continue
			}
			points = append(points, vectorstore.Vector{ID: r.ID.String(), Values: v, Metadata: vectorMetadata(r, r.Meta())})
		}
		if err := s.vectors.Upsert(ctx, VectorNamespace, points); err != nil {
			return total, fmt.Errorf("warm index: %w", err)
		}
		total += len(points)
		if len(rows) < page {
			return total, nil
		}
	}
}

type MaterialRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type CategoryStats struct {
	Materials int `json:"materials"`
	Embedded  int `json:"embedded"`
	Chunks    int `json:"chunks"`
}

type Stats struct {
	TotalMaterials    int                      `json:"totalMaterials"`
	EmbeddedMaterials int                      `json:"embeddedMaterials"`
	TotalChunks       int                      `json:"totalChunks"`
	Coverage          float64                  `json:"coverage"`
	Missing           []MaterialRef            `json:"missing"`
	ByCategory        map[string]CategoryStats `json:"byCategory"`
}

// Stats reports embedding coverage. Coverage is a percentage with one decimal.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	dbc := dbctx.Context{Ctx: ctx}
	mats, err := s.materials.List(dbc, repos.MaterialFilter{})
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.chunks.CountByMaterial(dbc)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{Missing: []MaterialRef{}, ByCategory: map[string]CategoryStats{}}
	for _, m := range mats {
		n := counts[m.ID]
		cs := out.ByCategory[string(m.Category)]
		cs.Materials++
		cs.Chunks += n
		out.TotalMaterials++
		out.TotalChunks += n
		if n > 0 {
			out.EmbeddedMaterials++
			cs.Embedded++
		} else {
			out.Missing = append(out.Missing, MaterialRef{ID: m.ID, Title: m.Title})
		}
		out.ByCategory[string(m.Category)] = cs
	}
	if out.TotalMaterials > 0 {
		out.Coverage = math.Round(float64(out.EmbeddedMaterials)/float64(out.TotalMaterials)*1000) / 10
	}
	sort.Slice(out.Missing, func(i, j int) bool { return out.Missing[i].Title < out.Missing[j].Title })
	return out, nil
}

func prepareChunks(chunks []string, meta domain.ChunkMetadata) []pendingChunk {
	for _, c := range chunks {
		if ref, ok := domain.DecodeContent(c).(domain.FileReference); ok {
			return []pendingChunk{{index: 0, content: domain.EncodeContent(ref), embedText: SyntheticText(meta)}}
		}
	}
	out := make([]pendingChunk, 0, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		out = append(out, pendingChunk{index: i, content: c, embedText: c})
	}
	return out
}

// SyntheticText is the discoverability text embedded for file-only materials.
func SyntheticText(meta domain.ChunkMetadata) string {
	parts := []string{}
	if t := strings.TrimSpace(meta.Title); t != "" {
		parts = append(parts, t)
	}
	if t := strings.TrimSpace(meta.Topic); t != "" {
		parts = append(parts, "Topic: "+t)
	}
	if meta.Category != "" {
		parts = append(parts, "Category: "+string(meta.Category))
	}
	if meta.Week > 0 {
		parts = append(parts, fmt.Sprintf("Week %d", meta.Week))
	}
	return strings.Join(parts, ". ")
}

func vectorMetadata(c *domain.EmbeddingChunk, meta domain.ChunkMetadata) map[string]any {
	return map[string]any{
		"material_id": c.MaterialID.String(),
		"chunk_index": c.ChunkIndex,
		"category":    string(meta.Category),
	}
}

func vectorIDs(points []vectorstore.Vector) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.ID
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
