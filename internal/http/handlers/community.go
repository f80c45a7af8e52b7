package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/services"
)

type createPostRequest struct {
	Title    string   `json:"title" validate:"required,max=300"`
	Body     string   `json:"body" validate:"required,max=20000"`
	Category string   `json:"category" validate:"omitempty,category"`
	Tags     []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type replyRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

type listPostsQuery struct {
	Category string `form:"category" validate:"omitempty,category"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

type CommunityHandler struct {
	community services.CommunityService
	validate  *validator.Validate
}

func NewCommunityHandler(community services.CommunityService, validate *validator.Validate) *CommunityHandler {
	return &CommunityHandler{community: community, validate: validate}
}

// GET /api/community/posts
func (h *CommunityHandler) List(c *gin.Context) {
	var q listPostsQuery
	if !bindQuery(c, h.validate, &q) {
		return
	}
	posts, err := h.community.List(c.Request.Context(), domain.Category(q.Category), q.Limit, q.Offset)
	if err != nil {
		response.RespondFromError(c, "list_posts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"posts": posts})
}

// POST /api/community/posts
func (h *CommunityHandler) Create(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var req createPostRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	post, err := h.community.Create(c.Request.Context(), userID, services.CreatePostInput{
		Title:    req.Title,
		Body:     req.Body,
		Category: domain.Category(req.Category),
		Tags:     req.Tags,
	})
	if err != nil {
		response.RespondFromError(c, "create_post_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"post": post})
}

// GET /api/community/posts/:id
func (h *CommunityHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.community.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, "get_post_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"post": post})
}

// DELETE /api/community/posts/:id
func (h *CommunityHandler) Delete(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.community.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondFromError(c, "delete_post_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/community/posts/:id/replies
func (h *CommunityHandler) Reply(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	reply, err := h.community.Reply(c.Request.Context(), userID, id, req.Body)
	if err != nil {
		response.RespondFromError(c, "reply_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"reply": reply})
}

// POST /api/community/posts/:id/bot-reply
func (h *CommunityHandler) BotReply(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	reply, err := h.community.BotReply(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, "bot_reply_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"reply": reply})
}
