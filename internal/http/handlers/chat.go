package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/services"
)

type chatRequest struct {
	Message  string            `json:"message" validate:"required,max=4000"`
	History  []domain.ChatTurn `json:"history" validate:"omitempty,max=50,dive"`
	Category string            `json:"category" validate:"omitempty,category"`
	Validate bool              `json:"validate"`
}

func (r chatRequest) input() services.ChatInput {
	return services.ChatInput{
		Message:  r.Message,
		History:  r.History,
		Category: domain.Category(r.Category),
		Validate: r.Validate,
	}
}

type ChatHandler struct {
	log      *logger.Logger
	chat     services.ChatService
	validate *validator.Validate
}

func NewChatHandler(log *logger.Logger, chat services.ChatService, validate *validator.Validate) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat, validate: validate}
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	reply, err := h.chat.Chat(c.Request.Context(), actorID(c), req.input())
	if err != nil {
		response.RespondFromError(c, "chat_failed", err)
		return
	}
	response.RespondOK(c, reply)
}

// POST /api/chat/stream
// Emits "delta" events with text fragments and a final "done" event carrying
// the full reply. Failures after the stream has started arrive as "error".
func (h *ChatHandler) Stream(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	reply, err := h.chat.Stream(c.Request.Context(), actorID(c), req.input(), func(delta string) error {
		c.SSEvent("delta", gin.H{"text": delta})
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		_, code := response.Classify(err, "chat_failed")
		h.log.Warn("chat stream failed", "code", code, "error", err)
		c.SSEvent("error", response.APIError{Message: err.Error(), Code: code})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", reply)
	c.Writer.Flush()
}

// GET /api/chat/history
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	rows, err := h.chat.History(c.Request.Context(), userID, queryInt(c, "limit", 50))
	if err != nil {
		response.RespondFromError(c, "chat_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"history": rows})
}

// DELETE /api/chat/history
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	n, err := h.chat.ClearHistory(c.Request.Context(), userID)
	if err != nil {
		response.RespondFromError(c, "clear_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": n})
}
