package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Cache is a prefixed byte cache with a fixed TTL.
type Cache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Cache, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(log, rdb, cfg.Prefix, cfg.TTL), nil
}

func NewWithClient(log *logger.Logger, rdb *goredis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "skooly"
	}
	return &Cache{
		log:    log.With("service", "RedisCache"),
		rdb:    rdb,
		prefix: strings.TrimSuffix(prefix, ":"),
		ttl:    ttl,
	}
}

// Get reports a miss with ok=false and a nil error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return raw, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	if err := c.rdb.Set(ctx, c.key(key), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}
