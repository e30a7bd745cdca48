package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReplyCache memoizes synthesized replies keyed by the analysis signature
// (intent plus sorted keywords). Only session-independent replies belong
// here; anything shaped by an active collection must bypass the cache.
// The cache is best-effort: every failure degrades to a miss.
type ReplyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to redis, returning a disabled cache when the address is
// empty or the server is unreachable. The pipeline treats a disabled
// cache as a permanent miss.
func New(ctx context.Context, cfg Config, logger *zap.Logger) *ReplyCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		return &ReplyCache{logger: logger}
	}
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, reply cache disabled", zap.Error(err))
		_ = client.Close()
		return &ReplyCache{logger: logger}
	}

	logger.Info("Reply cache connected", zap.String("addr", cfg.Addr))
	return &ReplyCache{client: client, ttl: cfg.TTL, logger: logger}
}

func (c *ReplyCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key derives the cache key from the analysis signature. Keyword order
// must not matter, so the slice is sorted before hashing. md5 keeps the
// key short; it is a cache key, not a security boundary.
func Key(intent string, keywords []string) string {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)
	sum := md5.Sum([]byte(intent + "|" + strings.Join(sorted, ",")))
	return "reply:" + hex.EncodeToString(sum[:])
}

func (c *ReplyCache) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Reply cache read failed", zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *ReplyCache) Set(ctx context.Context, key, reply string) {
	if !c.Enabled() {
		return
	}

	if err := c.client.Set(ctx, key, reply, c.ttl).Err(); err != nil {
		c.logger.Debug("Reply cache write failed", zap.Error(err))
	}
}

func (c *ReplyCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
