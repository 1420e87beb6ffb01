package app

import (
	"context"
	"fmt"

	"github.com/yungbote/coursebridge-backend/internal/data/graph"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/indexer"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/semantic"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
)

type Services struct {
	Store     catalog.Store
	Resolver  *eligibility.Resolver
	Retriever *semantic.Retriever
	Engine    *advising.Engine
	// Indexer is nil when there is no embedder or no vector index.
	Indexer *indexer.Indexer
	Index   vectorstore.VectorStore
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	aliases, err := catalog.LoadAliases(cfg.AliasesPath)
	if err != nil {
		return Services{}, fmt.Errorf("load aliases: %w", err)
	}
	matcher := catalog.NewMatcher(aliases)
	log.Info("Course aliases loaded", "aliases", aliases.Len(), "path", cfg.AliasesPath)

	var store catalog.Store
	switch cfg.StoreBackend {
	case "neo4j":
		if clients.Neo4j == nil {
			return Services{}, fmt.Errorf("store backend neo4j requires NEO4J_URI")
		}
		store = graph.NewNeo4jStore(clients.Neo4j, matcher, log)
	default:
		store = catalog.NewSQLStore(reposet.Course, reposet.PrereqEdge, matcher, log, catalog.WithTitleTTL(cfg.TitleIndexTTL))
	}

	index, err := resolveVectorStore(ctx, log, metrics, cfg)
	if err != nil {
		return Services{}, err
	}

	out := Services{
		Store:    store,
		Resolver: eligibility.NewResolver(store, log),
		Index:    index,
	}

	// A nil *Retriever must not reach the engine as a non-nil interface.
	var retriever advising.Retriever
	if clients.Embedder != nil && index != nil {
		out.Retriever = semantic.NewRetriever(clients.Embedder, index, cfg.Semantic, metrics, log)
		out.Indexer = indexer.New(reposet.Course, clients.Embedder, index, log)
		retriever = out.Retriever
	}
	out.Engine = advising.NewEngine(store, retriever, cfg.Engine, metrics, log)
	return out, nil
}
