package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/services"
)

type createVideoRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Prompt      string `json:"prompt" validate:"required,max=4000"`
	AspectRatio string `json:"aspectRatio" validate:"omitempty,oneof=16:9 9:16"`
}

type VideoHandler struct {
	videos   services.VideoService
	validate *validator.Validate
}

func NewVideoHandler(videos services.VideoService, validate *validator.Validate) *VideoHandler {
	return &VideoHandler{videos: videos, validate: validate}
}

// POST /api/videos
func (h *VideoHandler) Create(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	var req createVideoRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	v, job, err := h.videos.Create(c.Request.Context(), userID, services.CreateVideoInput{
		Title:       req.Title,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		response.RespondFromError(c, "create_video_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"video": v, "job": job})
}

// GET /api/videos
func (h *VideoHandler) List(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.videos.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondFromError(c, "list_videos_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"videos": list})
}

// GET /api/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	v, err := h.videos.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondFromError(c, "get_video_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"video": v})
}

// DELETE /api/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.videos.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondFromError(c, "delete_video_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
