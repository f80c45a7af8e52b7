package app

import (
	"time"

	"github.com/yungbote/skooly-backend/internal/data/db"
	"github.com/yungbote/skooly-backend/internal/jobs/worker"
	"github.com/yungbote/skooly-backend/internal/modules/generation"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/modules/validation"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/envutil"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/rediscache"
)

const serviceName = "skooly-backend"

type Config struct {
	Port    string
	LogMode string

	DB db.Config

	JWTSecretKey string
	JWTIssuer    string

	Gemini   gemini.Config
	Chunking rag.StoreConfig
	Search   rag.AssemblerConfig

	Generation generation.Config
	Validation validation.Config

	MaxUploadBytes    int64
	FileFetchMaxBytes int64
	FileFetch         generation.FetchPolicy

	VideoPollInterval time.Duration
	VideoMaxPolls     int
	VideoAspectRatio  string

	Redis rediscache.Config

	Otel           observability.OtelConfig
	MetricsEnabled bool

	Worker worker.Config

	CORSOrigins []string
}

// LoadConfig reads the process environment. Missing values fall back to
// local-development defaults.
func LoadConfig(log *logger.Logger) Config {
	embeddingDim := envutil.Int("EMBEDDING_DIM", 768)
	cfg := Config{
		Port:    envutil.String("PORT", "8080"),
		LogMode: envutil.String("LOG_MODE", "development"),

		DB: db.Config{
			Driver:     envutil.String("DATABASE_DRIVER", "postgres"),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.Int("POSTGRES_PORT", 5432),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "skooly"),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath: envutil.String("SQLITE_PATH", "skooly.db"),
		},

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),

		Gemini: gemini.Config{
			APIKey:         envutil.String("GEMINI_API_KEY", ""),
			EmbeddingModel: envutil.String("GEMINI_EMBEDDING_MODEL", gemini.DefaultEmbeddingModel),
			TextModel:      envutil.String("GEMINI_TEXT_MODEL", gemini.DefaultTextModel),
			TTSModel:       envutil.String("GEMINI_TTS_MODEL", gemini.DefaultTTSModel),
			VideoModel:     envutil.String("GEMINI_VIDEO_MODEL", gemini.DefaultVideoModel),
			EmbeddingDim:   embeddingDim,
			MaxAttempts:    envutil.Int("GEMINI_MAX_ATTEMPTS", 3),
		},
		Chunking: rag.StoreConfig{
			MaxChunkSize:     envutil.Int("CHUNK_MAX_SIZE", 2000),
			Overlap:          envutil.Int("CHUNK_OVERLAP", 200),
			EmbedConcurrency: envutil.Int("EMBED_CONCURRENCY", 4),
		},
		Search: rag.AssemblerConfig{
			DefaultLimit: envutil.Int("SEARCH_LIMIT", 5),
			MinScore:     envutil.Float("SEARCH_MIN_SCORE", 0.5),
		},

		Generation: generation.Config{
			Timeout:    envutil.Duration("GENERATION_TIMEOUT", 60*time.Second),
			MaxFiles:   envutil.Int("GENERATION_MAX_FILES", 3),
			HostVoice:  envutil.String("PODCAST_HOST_VOICE", "Kore"),
			GuestVoice: envutil.String("PODCAST_GUEST_VOICE", "Puck"),
		},
		Validation: validation.Config{
			MaxClaims:         envutil.Int("VALIDATION_MAX_CLAIMS", 10),
			CheckedClaims:     envutil.Int("VALIDATION_CHECKED_CLAIMS", 5),
			Concurrency:       envutil.Int("VALIDATION_CONCURRENCY", 3),
			GroundingMinScore: envutil.Float("GROUNDING_MIN_SCORE", 0),
		},

		MaxUploadBytes:    int64(envutil.Int("MAX_UPLOAD_MB", 50)) << 20,
		FileFetchMaxBytes: int64(envutil.Int("FILE_FETCH_MAX_MB", 20)) << 20,
		FileFetch: generation.FetchPolicy{
			AllowedHosts:         envutil.List("FILE_FETCH_ALLOWED_HOSTS", nil),
			AllowPrivateNetworks: envutil.Bool("FILE_FETCH_ALLOW_PRIVATE", false),
		},

		VideoPollInterval: envutil.Duration("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoMaxPolls:     envutil.Int("VIDEO_MAX_POLLS", 60),
		VideoAspectRatio:  envutil.String("VIDEO_ASPECT_RATIO", "16:9"),

		Redis: rediscache.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Prefix:   envutil.String("REDIS_PREFIX", "skooly:qemb:"),
			TTL:      envutil.Duration("EMBED_CACHE_TTL", 24*time.Hour),
		},

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", serviceName),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),

		Worker: worker.Config{
			Concurrency:  envutil.Int("WORKER_CONCURRENCY", 2),
			PollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
			MaxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", 5),
			RetryDelay:   envutil.Duration("JOB_RETRY_DELAY", 30*time.Second),
			StaleRunning: envutil.Duration("JOB_STALE_RUNNING", 30*time.Minute),
		},

		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
	}
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; protected routes will reject every token")
	}
	return cfg
}

func (c Config) Address() string {
	return ":" + c.Port
}
