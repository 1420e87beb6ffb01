package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	rediscache "github.com/yungbote/coursebridge-backend/internal/platform/redis"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/semantic"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/neo4jdb"
	"github.com/yungbote/coursebridge-backend/internal/platform/openai"
)

type Clients struct {
	// Embedder is nil without OPENAI_API_KEY.
	Embedder semantic.Embedder
	Redis    *goredis.Client
	Neo4j    *neo4jdb.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set; semantic retrieval disabled")
	} else {
		emb, err := openai.NewEmbedder(cfg.OpenAI, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init embedder: %w", err)
		}
		out.Embedder = emb

		if cfg.Redis.Addr != "" {
			rdb, err := rediscache.NewClient(ctx, cfg.Redis)
			if err != nil {
				// The cache is optional; embeddings still work uncached.
				log.Warn("Redis unavailable; embedding cache disabled", "error", err)
			} else {
				out.Redis = rdb
				out.Embedder = rediscache.NewCachedEmbedder(rdb, emb, cfg.Redis, log)
			}
		}
	}

	if cfg.Neo4j.URI != "" {
		client, err := neo4jdb.New(cfg.Neo4j, log)
		if err != nil {
			out.close(ctx, log)
			return Clients{}, err
		}
		out.Neo4j = client
	}
	return out, nil
}

func (c Clients) close(ctx context.Context, log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("Redis close failed", "error", err)
		}
	}
	if c.Neo4j != nil {
		if err := c.Neo4j.Close(ctx); err != nil {
			log.Warn("Neo4j close failed", "error", err)
		}
	}
}
