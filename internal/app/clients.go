package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/rediscache"
)

type Clients struct {
	Gemini  *gemini.Client
	Bucket  gcp.BucketService
	Storage gcp.StorageConfig
	// EmbedCache is nil when REDIS_ADDR is unset.
	EmbedCache *rediscache.Cache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Gemini
	gc, err := gemini.New(ctx, log, cfg.Gemini)
	if err != nil {
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}

	// Gcs
	storageCfg, err := resolveStorageConfig(log)
	if err != nil {
		return Clients{}, err
	}
	bucket, err := resolveBucketService(ctx, log, storageCfg)
	if err != nil {
		return Clients{}, err
	}

	// Redis
	var cache *rediscache.Cache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		c, err := rediscache.New(ctx, log, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable; query embeddings will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache = c
		}
	}

	return Clients{
		Gemini:     gc,
		Bucket:     bucket,
		Storage:    storageCfg,
		EmbedCache: cache,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.EmbedCache != nil {
		_ = c.EmbedCache.Close()
	}
}
