package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/skooly-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skooly-backend/internal/http/middleware"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

func TestRouterHealthAndAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		AuthMiddleware: httpMW.NewAuthMiddleware(logger.Nop(), "secret", ""),
		JobHandler:     httpH.NewJobHandler(nil),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace headers missing: %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/00000000-0000-0000-0000-000000000001", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected route: got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: got=%d", rec.Code)
	}
}
