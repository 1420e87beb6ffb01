package app

import (
	"context"
	"fmt"

	"github.com/yungbote/coursebridge-backend/internal/data/db"
	httpserver "github.com/yungbote/coursebridge-backend/internal/http"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/indexer"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Metrics  *observability.Metrics
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *httpserver.Server

	shutdownOTel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig()
	if err != nil {
		log.Sync()
		return nil, err
	}
	return NewWithConfig(ctx, log, cfg)
}

// NewWithConfig builds the app from an already loaded config. cmd tools use
// it to share wiring with the server.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg, Metrics: observability.NewMetrics()}
	a.shutdownOTel = observability.InitOTel(ctx, log, cfg.OTel)

	dbs, err := db.NewService(cfg.DB, log)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(dbs.DB()); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	a.Repos = wireRepos(dbs.DB(), log)

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Services, err = wireServices(ctx, log, cfg, a.Metrics, a.Repos, a.Clients)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if a.Services.Indexer != nil && (cfg.IndexOnStartup || VectorProvider(cfg.VectorProvider) == VectorProviderMemory) {
		a.indexOnStartup(ctx)
	}

	a.Server = wireHTTP(log, cfg, a.Metrics, dbs, a.Clients, a.Services)
	return a, nil
}

// indexOnStartup fills the vector index. Failure leaves semantic retrieval
// degraded rather than stopping the server.
func (a *App) indexOnStartup(ctx context.Context) {
	stats, err := a.Services.Indexer.Reindex(ctx, indexer.Options{Namespace: a.Cfg.Semantic.Namespace})
	if err != nil {
		a.Log.Warn("Startup indexing failed; semantic results may be missing", "error", err, "indexed", stats.Indexed)
		return
	}
	a.Log.Info("Startup indexing done", "courses", stats.Courses, "indexed", stats.Indexed, "duration", stats.Duration.String())
}

// Run blocks until the server stops.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr)
	return a.Server.Run(a.Cfg.Addr)
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.close(ctx, a.Log)
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
