package app

import (
	"github.com/yungbote/skooly-backend/internal/http"
	httpH "github.com/yungbote/skooly-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skooly-backend/internal/http/middleware"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Material  *httpH.MaterialHandler
	Search    *httpH.SearchHandler
	Embedding *httpH.EmbeddingHandler
	Generate  *httpH.GenerateHandler
	Chat      *httpH.ChatHandler
	Validate  *httpH.ValidateHandler
	Community *httpH.CommunityHandler
	Video     *httpH.VideoHandler
	Job       *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, v *validation.Validator, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	validate := httpH.NewValidator()
	return Handlers{
		Health:    httpH.NewHealthHandler(metrics),
		Material:  httpH.NewMaterialHandler(log, services.Material, validate, cfg.MaxUploadBytes),
		Search:    httpH.NewSearchHandler(services.Search, validate),
		Embedding: httpH.NewEmbeddingHandler(services.Embedding, validate),
		Generate:  httpH.NewGenerateHandler(services.Generate, validate),
		Chat:      httpH.NewChatHandler(log, services.Chat, validate),
		Validate:  httpH.NewValidateHandler(v, validate),
		Community: httpH.NewCommunityHandler(services.Community, validate),
		Video:     httpH.NewVideoHandler(services.Video, validate),
		Job:       httpH.NewJobHandler(services.Job),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, cfg.JWTIssuer),
	}
}

func routerConfig(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) http.RouterConfig {
	return http.RouterConfig{
		Log:              log,
		ServiceName:      cfg.Otel.ServiceName,
		TracingEnabled:   cfg.Otel.Enabled,
		CORSOrigins:      cfg.CORSOrigins,
		Metrics:          metrics,
		AuthMiddleware:   middleware.Auth,
		MaterialHandler:  handlers.Material,
		SearchHandler:    handlers.Search,
		EmbeddingHandler: handlers.Embedding,
		GenerateHandler:  handlers.Generate,
		ChatHandler:      handlers.Chat,
		ValidateHandler:  handlers.Validate,
		CommunityHandler: handlers.Community,
		VideoHandler:     handlers.Video,
		JobHandler:       handlers.Job,
		HealthHandler:    handlers.Health,
	}
}
