package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

// Embedder is the slice of the embedding client the cache decorates.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Model() string
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		TTL:      envutil.Duration("EMBED_CACHE_TTL", 24*time.Hour),
		Prefix:   envutil.String("EMBED_CACHE_PREFIX", "cb:emb"),
	}
}

// NewClient dials and pings Redis.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
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
	return rdb, nil
}

// CachedEmbedder memoizes embeddings by (model, text). Redis failures never
// fail a request: the cache is skipped and the inner embedder answers.
type CachedEmbedder struct {
	rdb    goredis.Cmdable
	inner  Embedder
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewCachedEmbedder(rdb goredis.Cmdable, inner Embedder, cfg Config, baseLog *logger.Logger) *CachedEmbedder {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "cb:emb"
	}
	return &CachedEmbedder{
		rdb:    rdb,
		inner:  inner,
		ttl:    cfg.TTL,
		prefix: prefix,
		log:    baseLog.With("service", "RedisEmbeddingCache"),
	}
}

func (c *CachedEmbedder) Model() string { return c.inner.Model() }

func (c *CachedEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	keys := make([]string, len(inputs))
	for i, in := range inputs {
		keys[i] = c.key(in)
	}

	out := make([][]float32, len(inputs))
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("Embedding cache read failed", "error", err)
		cached = nil
	}
	var missIdx []int
	var missText []string
	for i := range inputs {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				if vec, ok := decodeVector([]byte(s)); ok {
					out[i] = vec
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
		missText = append(missText, inputs[i])
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Embed(ctx, missText)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missIdx) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(fresh), len(missIdx))
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("Embedding cache write failed", "error", err, "entries", len(missIdx))
	}
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return c.prefix + ":" + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, bool) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, true
}
