package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/services"
)

type backfillRequest struct {
	MaterialIDs []string `json:"materialIds" validate:"omitempty,max=500,dive,uuid"`
	Force       bool     `json:"force"`
}

type EmbeddingHandler struct {
	embeddings services.EmbeddingService
	validate   *validator.Validate
}

func NewEmbeddingHandler(embeddings services.EmbeddingService, validate *validator.Validate) *EmbeddingHandler {
	return &EmbeddingHandler{embeddings: embeddings, validate: validate}
}

// POST /api/embeddings/backfill
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	var req backfillRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.validate, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.MaterialIDs))
	for _, raw := range req.MaterialIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
			return
		}
		ids = append(ids, id)
	}
	reports, err := h.embeddings.Backfill(c.Request.Context(), ids, req.Force)
	if err != nil {
		response.RespondFromError(c, "backfill_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"results": reports})
}

// GET /api/embeddings/stats
func (h *EmbeddingHandler) Stats(c *gin.Context) {
	stats, err := h.embeddings.Stats(c.Request.Context())
	if err != nil {
		response.RespondFromError(c, "stats_failed", err)
		return
	}
	response.RespondOK(c, stats)
}
