package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/services"
)

type validateRequest struct {
	Response      string `json:"response" validate:"required,max=100000"`
	Query         string `json:"query" validate:"max=4000"`
	SkipGrounding bool   `json:"skipGrounding"`
	SkipSelfEval  bool   `json:"skipSelfEval"`
}

type ValidateHandler struct {
	validator services.ResponseValidator
	validate  *validator.Validate
}

func NewValidateHandler(v services.ResponseValidator, validate *validator.Validate) *ValidateHandler {
	return &ValidateHandler{validator: v, validate: validate}
}

// POST /api/validate
func (h *ValidateHandler) Validate(c *gin.Context) {
	var req validateRequest
	if !bindJSON(c, h.validate, &req) {
		return
	}
	res := h.validator.Validate(c.Request.Context(), req.Response, req.Query, validation.Options{
		SkipGrounding: req.SkipGrounding,
		SkipSelfEval:  req.SkipSelfEval,
	})
	response.RespondOK(c, res)
}
