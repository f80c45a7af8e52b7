package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type SearchMode string

const (
	ModeSearch SearchMode = "search"
	ModeRAG    SearchMode = "rag"
)

type SearchRequest struct {
	Query    string
	Mode     SearchMode
	Limit    int
	Category domain.Category
}

type SearchResponse struct {
	Citations []domain.Source     `json:"citations"`
	Response  string              `json:"response,omitempty"`
	FileURLs  []domain.FileSource `json:"fileUrls,omitempty"`
}

type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type searchService struct {
	log      *logger.Logger
	rag      ContextProvider
	answerer Answerer
}

func NewSearchService(baseLog *logger.Logger, rag ContextProvider, answerer Answerer) SearchService {
	return &searchService{log: baseLog.With("service", "SearchService"), rag: rag, answerer: answerer}
}

func (ss *searchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if req.Mode == "" {
		req.Mode = ModeSearch
	}
	ctx, span := observability.StartSpan(ctx, "search", attribute.String("mode", string(req.Mode)))
	defer span.End()

	opts := rag.ContextOptions{Limit: req.Limit, Category: req.Category}
	switch req.Mode {
	case ModeSearch:
		sources, err := ss.rag.Search(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		return &SearchResponse{Citations: sources}, nil
	case ModeRAG:
		rc, err := ss.rag.GetContext(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		answer, err := ss.answerer.Answer(ctx, generation.AnswerRequest{
			Question: query,
			Context:  rc.Context,
			Files:    rc.FileURLs,
		})
		if err != nil {
			span.RecordError(err)
			return nil, generation.ClassifyError(err)
		}
		return &SearchResponse{Citations: rc.Sources, Response: answer, FileURLs: rc.FileURLs}, nil
	default:
		return nil, fmt.Errorf("%w: mode must be search or rag", domain.ErrInvalidArgument)
	}
}
