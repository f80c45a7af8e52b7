package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/http/response"
	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
)

// NewValidator returns a validator with the domain enum rules registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("materialtype", func(fl validator.FieldLevel) bool {
		return domain.MaterialType(fl.Field().String()).Valid()
	})
	return v
}

func bindJSON(c *gin.Context, v *validator.Validate, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return false
	}
	return validateStruct(c, v, dst)
}

func bindQuery(c *gin.Context, v *validator.Validate, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return false
	}
	return validateStruct(c, v, dst)
}

func validateStruct(c *gin.Context, v *validator.Validate, dst any) bool {
	if err := v.Struct(dst); err != nil {
		response.RespondFromError(c, "validation_failed", err)
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(c *gin.Context) string {
	return ctxutil.ActorID(c.Request.Context())
}

func requireActor(c *gin.Context) (string, bool) {
	id := actorID(c)
	if id == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
