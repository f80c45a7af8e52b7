package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/services"
)

type generateRequest struct {
	Type          string `json:"type" validate:"required,oneof=notes slides pdf code-guide mcq podcast"`
	Title         string `json:"title" validate:"max=300"`
	Topic         string `json:"topic" validate:"max=300"`
	SourceContent string `json:"sourceContent" validate:"max=200000"`
	FileURL       string `json:"fileUrl" validate:"omitempty,url"`
	Query         string `json:"query" validate:"max=2000"`
	Category      string `json:"category" validate:"omitempty,category"`
	Customization string `json:"customization" validate:"max=4000"`
	Save          bool   `json:"save"`
	Validate      bool   `json:"validate"`
}

type GenerateHandler struct {
	generate services.GenerateService
	validate *validator.Validate
}

func NewGenerateHandler(generate services.GenerateService, validate *validator.Validate) *GenerateHandler {
	return &GenerateHandler{generate: generate, validate: validate}
}

// POST /api/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	userID := actorID(c)
	if (req.Save || req.FileURL != "") && userID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	out, err := h.generate.Generate(c.Request.Context(), userID, services.GenerateInput{
		Type:          generation.ContentType(req.Type),
		Title:         req.Title,
		Topic:         req.Topic,
		SourceContent: req.SourceContent,
		FileURL:       req.FileURL,
		Query:         req.Query,
		Category:      domain.Category(req.Category),
		Customization: req.Customization,
		Save:          req.Save,
		Validate:      req.Validate,
	})
	if err != nil {
		response.RespondFromError(c, "generation_failed", err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/ai-materials
func (h *GenerateHandler) ListSaved(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	list, err := h.generate.ListSaved(c.Request.Context(), userID, c.Query("type"))
	if err != nil {
		response.RespondFromError(c, "list_ai_materials_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"materials": list})
}

// DELETE /api/ai-materials/:id
func (h *GenerateHandler) DeleteSaved(c *gin.Context) {
	userID, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.generate.DeleteSaved(c.Request.Context(), userID, id); err != nil {
		response.RespondFromError(c, "delete_ai_material_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
