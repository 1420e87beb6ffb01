package app

import (
	"context"

	"github.com/yungbote/coursebridge-backend/internal/data/db"
	httpserver "github.com/yungbote/coursebridge-backend/internal/http"
	httpH "github.com/yungbote/coursebridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursebridge-backend/internal/http/middleware"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
)

func wireHTTP(log *logger.Logger, cfg Config, metrics *observability.Metrics, dbs *db.Service, clients Clients, services Services) *httpserver.Server {
	log.Info("Wiring HTTP...")

	checks := map[string]httpH.ReadyCheck{
		"database": dbs.Ping,
	}
	if clients.Neo4j != nil {
		checks["neo4j"] = clients.Neo4j.Ping
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}

	return httpserver.NewServer(httpserver.RouterConfig{
		Log:             log,
		ServiceName:     cfg.OTel.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         metrics,
		Identity:        httpMW.NewIdentityMiddleware(log, cfg.Auth),
		AdvisingHandler: httpH.NewAdvisingHandler(log, services.Engine, services.Resolver, services.Store),
		HealthHandler:   httpH.NewHealthHandler(checks),
	})
}
