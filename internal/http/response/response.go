package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondFromError picks the status and code for err. fallbackCode is used
// for failures with no better classification.
func RespondFromError(c *gin.Context, fallbackCode string, err error) {
	status, code := Classify(err, fallbackCode)
	if err != nil {
		_ = c.Error(err)
	}
	RespondError(c, status, code, err)
}

// Classify maps service errors onto HTTP status and error code.
func Classify(err error, fallbackCode string) (int, string) {
	var ae *apierr.Error
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ae) && ae.Status != 0:
		return ae.Status, ae.Code
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, generation.ErrTimeout):
		return http.StatusGatewayTimeout, "generation_timeout"
	case errors.Is(err, generation.ErrSafety):
		return http.StatusUnprocessableEntity, "generation_blocked"
	case errors.Is(err, generation.ErrFailed):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request_canceled"
	}
	return http.StatusInternalServerError, fallbackCode
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
