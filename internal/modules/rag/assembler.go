package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const (
	contextSeparator = "\n\n---\n\n"
	excerptRunes     = 240
)

type AssemblerConfig struct {
	DefaultLimit int
	MinScore     float64
}

type ContextOptions struct {
	Limit    int
	Category domain.Category
	// MinScore overrides the configured cutoff when set.
	MinScore *float64
}

// RAGContext is the assembled grounding for one query. Slices are never nil
// so an empty result serializes as [] rather than null.
type RAGContext struct {
	Context  string              `json:"context"`
	Sources  []domain.Source     `json:"sources"`
	FileURLs []domain.FileSource `json:"fileUrls"`
}

func (c *RAGContext) Empty() bool {
	return c == nil || (c.Context == "" && len(c.FileURLs) == 0)
}

// Assembler turns a query into text context, citations and file references.
type Assembler struct {
	log      *logger.Logger
	store    *Store
	embedder Embedder
	cfg      AssemblerConfig
}

func NewAssembler(log *logger.Logger, store *Store, embedder Embedder, cfg AssemblerConfig) *Assembler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	return &Assembler{log: log.With("service", "RAGAssembler"), store: store, embedder: embedder, cfg: cfg}
}

func (a *Assembler) GetContext(ctx context.Context, query string, opts ContextOptions) (*RAGContext, error) {
	ctx, span := observability.StartSpan(ctx, "rag.get_context", attribute.String("category", string(opts.Category)))
	defer span.End()

	hits, err := a.search(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.Current().ObserveSearch("rag", len(hits))
	return Assemble(hits), nil
}

// Search returns deduplicated citations without building a context block.
func (a *Assembler) Search(ctx context.Context, query string, opts ContextOptions) ([]domain.Source, error) {
	ctx, span := observability.StartSpan(ctx, "rag.search")
	defer span.End()

	hits, err := a.search(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.Current().ObserveSearch("search", len(hits))
	return Assemble(hits).Sources, nil
}

func (a *Assembler) search(ctx context.Context, query string, opts ContextOptions) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidArgument)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = a.cfg.DefaultLimit
	}
	minScore := a.cfg.MinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	q, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return a.store.SimilaritySearch(ctx, q, SearchOptions{Limit: limit, Category: opts.Category, MinScore: minScore})
}

// Assemble splits hits into text context and file references. Sources are
// deduplicated by material, first hit wins.
func Assemble(hits []SearchHit) *RAGContext {
	out := &RAGContext{Sources: []domain.Source{}, FileURLs: []domain.FileSource{}}
	blocks := make([]string, 0, len(hits))
	seenSource := map[uuid.UUID]bool{}
	seenFile := map[uuid.UUID]bool{}
	for _, h := range hits {
		meta := h.Material
		switch body := domain.DecodeContent(h.Content).(type) {
		case domain.FileReference:
			if !seenFile[h.MaterialID] {
				seenFile[h.MaterialID] = true
				out.FileURLs = append(out.FileURLs, domain.FileSource{
					URL:        body.URL,
					Title:      meta.Title,
					Type:       meta.Type,
					MaterialID: h.MaterialID,
				})
			}
		case domain.TextContent:
			blocks = append(blocks, fmt.Sprintf("[%s]:\n%s", meta.Title, body.Text))
		}
		if seenSource[h.MaterialID] {
			continue
		}
		seenSource[h.MaterialID] = true
		out.Sources = append(out.Sources, domain.Source{
			MaterialID: h.MaterialID,
			Title:      meta.Title,
			Category:   meta.Category,
			Topic:      meta.Topic,
			Type:       meta.Type,
			Week:       meta.Week,
			FileURL:    meta.FileURL,
			Score:      h.Score,
			Excerpt:    excerpt(h.Content),
		})
	}
	out.Context = strings.Join(blocks, contextSeparator)
	return out
}

func excerpt(content string) string {
	if _, ok := domain.DecodeContent(content).(domain.FileReference); ok {
		return ""
	}
	r := []rune(strings.TrimSpace(content))
	if len(r) <= excerptRunes {
		return string(r)
	}
	return string(r[:excerptRunes]) + "..."
}
