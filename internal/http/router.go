package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/skooly-backend/internal/http/handlers"
	httpMW "github.com/yungbote/skooly-backend/internal/http/middleware"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	MaterialHandler  *httpH.MaterialHandler
	SearchHandler    *httpH.SearchHandler
	EmbeddingHandler *httpH.EmbeddingHandler
	GenerateHandler  *httpH.GenerateHandler
	ChatHandler      *httpH.ChatHandler
	ValidateHandler  *httpH.ValidateHandler
	CommunityHandler *httpH.CommunityHandler
	VideoHandler     *httpH.VideoHandler
	JobHandler       *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/metrics", cfg.HealthHandler.Metrics)
	}

	api := r.Group("/api")

	// Public routes see the caller when a token is present.
	public := api.Group("")
	protected := api.Group("")
	if cfg.AuthMiddleware != nil {
		public.Use(cfg.AuthMiddleware.OptionalAuth())
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Materials
	if cfg.MaterialHandler != nil {
		public.GET("/materials", cfg.MaterialHandler.List)
		public.GET("/materials/:id", cfg.MaterialHandler.Get)
		protected.POST("/materials", cfg.MaterialHandler.Upload)
		protected.PATCH("/materials/:id", cfg.MaterialHandler.Update)
		protected.DELETE("/materials/:id", cfg.MaterialHandler.Delete)
	}

	// Search / RAG
	if cfg.SearchHandler != nil {
		public.POST("/search", cfg.SearchHandler.Search)
	}

	// Embedding maintenance
	if cfg.EmbeddingHandler != nil {
		protected.POST("/embeddings/backfill", cfg.EmbeddingHandler.Backfill)
		protected.GET("/embeddings/stats", cfg.EmbeddingHandler.Stats)
	}

	// Generation
	if cfg.GenerateHandler != nil {
		public.POST("/generate", cfg.GenerateHandler.Generate)
		protected.GET("/ai-materials", cfg.GenerateHandler.ListSaved)
		protected.DELETE("/ai-materials/:id", cfg.GenerateHandler.DeleteSaved)
	}

	// Chat
	if cfg.ChatHandler != nil {
		public.POST("/chat", cfg.ChatHandler.Chat)
		public.POST("/chat/stream", cfg.ChatHandler.Stream)
		protected.GET("/chat/history", cfg.ChatHandler.History)
		protected.DELETE("/chat/history", cfg.ChatHandler.ClearHistory)
	}

	// Validation
	if cfg.ValidateHandler != nil {
		public.POST("/validate", cfg.ValidateHandler.Validate)
	}

	// Community
	if cfg.CommunityHandler != nil {
		public.GET("/community/posts", cfg.CommunityHandler.List)
		public.GET("/community/posts/:id", cfg.CommunityHandler.Get)
		protected.POST("/community/posts", cfg.CommunityHandler.Create)
		protected.DELETE("/community/posts/:id", cfg.CommunityHandler.Delete)
		protected.POST("/community/posts/:id/replies", cfg.CommunityHandler.Reply)
		protected.POST("/community/posts/:id/bot-reply", cfg.CommunityHandler.BotReply)
	}

	// Videos
	if cfg.VideoHandler != nil {
		protected.POST("/videos", cfg.VideoHandler.Create)
		protected.GET("/videos", cfg.VideoHandler.List)
		protected.GET("/videos/:id", cfg.VideoHandler.Get)
		protected.DELETE("/videos/:id", cfg.VideoHandler.Delete)
	}

	// Jobs
	if cfg.JobHandler != nil {
		protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
	}

	return r
}
