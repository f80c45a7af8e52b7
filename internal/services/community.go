package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type CreatePostInput struct {
	Title    string
	Body     string
	Category domain.Category
	Tags     []string
}

type CommunityService interface {
	List(ctx context.Context, category domain.Category, limit, offset int) ([]*domain.CommunityPost, error)
	Create(ctx context.Context, actorID string, in CreatePostInput) (*domain.CommunityPost, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.CommunityPost, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
	Reply(ctx context.Context, actorID string, postID uuid.UUID, body string) (*domain.CommunityReply, error)
	BotReply(ctx context.Context, postID uuid.UUID) (*domain.CommunityReply, error)
}

type communityService struct {
	log      *logger.Logger
	posts    repos.CommunityPostRepo
	rag      ContextProvider
	answerer Answerer
}

func NewCommunityService(baseLog *logger.Logger, posts repos.CommunityPostRepo, rag ContextProvider, answerer Answerer) CommunityService {
	return &communityService{
		log:      baseLog.With("service", "CommunityService"),
		posts:    posts,
		rag:      rag,
		answerer: answerer,
	}
}

func (cs *communityService) List(ctx context.Context, category domain.Category, limit, offset int) ([]*domain.CommunityPost, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidArgument, category)
	}
	return cs.posts.List(dbctx.Context{Ctx: ctx}, category, limit, offset)
}

func (cs *communityService) Create(ctx context.Context, actorID string, in CreatePostInput) (*domain.CommunityPost, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	title, body := strings.TrimSpace(in.Title), strings.TrimSpace(in.Body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", domain.ErrInvalidArgument)
	}
	if in.Category != "" && !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidArgument, in.Category)
	}
	return cs.posts.Create(dbctx.Context{Ctx: ctx}, &domain.CommunityPost{
		AuthorID:   actorID,
		AuthorName: displayName(ctx),
		Title:      title,
		Body:       body,
		Category:   in.Category,
		Tags:       encodeTags(in.Tags),
	})
}

func (cs *communityService) Get(ctx context.Context, id uuid.UUID) (*domain.CommunityPost, error) {
	return cs.posts.GetByID(dbctx.Context{Ctx: ctx}, id, true)
}

func (cs *communityService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := cs.posts.GetByID(dbc, id, false)
	if err != nil {
		return err
	}
	if err := requireOwner(actorID, p.AuthorID); err != nil {
		return err
	}
	return cs.posts.Delete(dbc, id)
}

func (cs *communityService) Reply(ctx context.Context, actorID string, postID uuid.UUID, body string) (*domain.CommunityReply, error) {
	if actorID == "" {
		return nil, domain.ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := cs.posts.GetByID(dbc, postID, false); err != nil {
		return nil, err
	}
	return cs.posts.AddReply(dbc, &domain.CommunityReply{
		PostID:     postID,
		AuthorID:   actorID,
		AuthorName: displayName(ctx),
		Body:       body,
	})
}

// BotReply answers the post from course materials and stores it as a bot reply.
func (cs *communityService) BotReply(ctx context.Context, postID uuid.UUID) (*domain.CommunityReply, error) {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := cs.posts.GetByID(dbc, postID, false)
	if err != nil {
		return nil, err
	}
	question := p.Title + "\n\n" + p.Body
	rc, err := cs.rag.GetContext(ctx, question, rag.ContextOptions{Category: p.Category})
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	answer, err := cs.answerer.Answer(ctx, generation.AnswerRequest{
		Question: question,
		Context:  rc.Context,
		Files:    rc.FileURLs,
	})
	if err != nil {
		return nil, generation.ClassifyError(err)
	}
	reply, err := cs.posts.AddReply(dbc, &domain.CommunityReply{
		PostID:     postID,
		AuthorName: domain.BotAuthorName,
		Body:       answer,
		IsBot:      true,
		Sources:    mustJSON(rc.Sources),
	})
	if err != nil {
		return nil, err
	}
	cs.log.Info("bot reply posted", "post_id", postID, "sources", len(rc.Sources))
	return reply, nil
}

func displayName(ctx context.Context) string {
	if rd := ctxutil.GetRequestData(ctx); rd != nil && strings.TrimSpace(rd.DisplayName) != "" {
		return strings.TrimSpace(rd.DisplayName)
	}
	return "Anonymous"
}
