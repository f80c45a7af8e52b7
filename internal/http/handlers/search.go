package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/services"
)

type searchRequest struct {
	Query    string `json:"query" validate:"required,max=2000"`
	Mode     string `json:"mode" validate:"omitempty,oneof=search rag"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=50"`
	Category string `json:"category" validate:"omitempty,category"`
}

type SearchHandler struct {
	search   services.SearchService
	validate *validator.Validate
}

func NewSearchHandler(search services.SearchService, validate *validator.Validate) *SearchHandler {
	return &SearchHandler{search: search, validate: validate}
}

// POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	res, err := h.search.Search(c.Request.Context(), services.SearchRequest{
		Query:    req.Query,
		Mode:     services.SearchMode(req.Mode),
		Limit:    req.Limit,
		Category: domain.Category(req.Category),
	})
	if err != nil {
		response.RespondFromError(c, "search_failed", err)
		return
	}
	response.RespondOK(c, res)
}
