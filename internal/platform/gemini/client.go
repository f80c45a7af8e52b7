package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultTextModel      = "gemini-2.5-flash"
	DefaultTTSModel       = "gemini-2.5-flash-preview-tts"
	DefaultVideoModel     = "veo-3.0-generate-preview"
)

type Config struct {
	APIKey         string
	EmbeddingModel string
	TextModel      string
	TTSModel       string
	VideoModel     string
	EmbeddingDim   int
	MaxAttempts    int
}

func (c Config) withDefaults() Config {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.TextModel == "" {
		c.TextModel = DefaultTextModel
	}
	if c.TTSModel == "" {
		c.TTSModel = DefaultTTSModel
	}
	if c.VideoModel == "" {
		c.VideoModel = DefaultVideoModel
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Client wraps the Gemini API for embeddings, text, speech and video.
type Client struct {
	log *logger.Logger
	api *genai.Client
	cfg Config
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	cfg = cfg.withDefaults()
	return &Client{log: log.With("client", "Gemini"), api: api, cfg: cfg}, nil
}

func (c *Client) EmbeddingModel() string { return c.cfg.EmbeddingModel }

// observe records a model call in metrics and returns the error unchanged.
func (c *Client) observe(model, endpoint string, start time.Time, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveLLMRequest(model, endpoint, status, time.Since(start))
	return err
}
