package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/qdrant"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
)

var newQdrantVectorStore = qdrant.NewVectorStore

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorConfig             VectorProviderBootstrapErrorCode = "config_invalid"
	VectorProviderBootstrapErrorConnectFailed      VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore returns nil with no error when semantic search is
// switched off; the engine then reports every bundle as partial.
func resolveVectorStore(ctx context.Context, log *logger.Logger, metrics *observability.Metrics, cfg Config) (vectorstore.VectorStore, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.VectorProvider))

	pcfg, err := resolveVectorProviderConfig(provider, cfg.OpenAI.Dimensions)
	if err != nil {
		code := VectorProviderBootstrapErrorConfig
		var cerr *VectorProviderConfigError
		if errors.As(err, &cerr) {
			code = VectorProviderBootstrapErrorCode(cerr.Code)
		}
		metrics.ObserveVectorProviderBootstrap(provider, "error", string(code))
		log.Error("Vector store provider selection failed", "provider", provider, "error_code", code, "error", err)
		return nil, &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	switch pcfg.Provider {
	case VectorProviderNone:
		log.Warn("Vector store disabled; semantic retrieval will be reported unavailable")
		metrics.ObserveVectorProviderBootstrap(provider, "degraded", "disabled")
		return nil, nil

	case VectorProviderMemory:
		log.Info("Selecting vector store provider", "provider", provider, "dim", pcfg.MemoryDim)
		metrics.ObserveVectorProviderBootstrap(provider, "success", "none")
		return instrumentVectorStore(string(pcfg.Provider), vectorstore.NewMemory(pcfg.MemoryDim), metrics), nil

	default:
		log.Info(
			"Selecting vector store provider",
			"provider", provider,
			"qdrant_url", pcfg.Qdrant.URL,
			"qdrant_collection", pcfg.Qdrant.Collection,
			"qdrant_namespace_prefix", pcfg.Qdrant.NamespacePrefix,
			"qdrant_vector_dim", pcfg.Qdrant.VectorDim,
		)
		vs, err := newQdrantVectorStore(ctx, log, pcfg.Qdrant)
		if err != nil {
			classified := classifyVectorProviderBootstrapError(provider, err)
			code := vectorProviderBootstrapErrorCode(classified)
			metrics.ObserveVectorProviderBootstrap(provider, "error", string(code))
			log.Error("Vector store provider bootstrap failed", "provider", provider, "error_code", code, "error", classified)
			return nil, classified
		}
		metrics.ObserveVectorProviderBootstrap(provider, "success", "none")
		return instrumentVectorStore(provider, vs, metrics), nil
	}
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	code := VectorProviderBootstrapErrorProviderInitFailed

	var urlErr *neturl.Error
	var netErr net.Error
	var opErr *qdrant.OperationError
	var cfgErr *qdrant.ConfigError
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		code = VectorProviderBootstrapErrorConnectFailed
	case errors.As(err, &opErr) && opErr.Unreachable():
		code = VectorProviderBootstrapErrorConnectFailed
	case errors.As(err, &cfgErr):
		code = VectorProviderBootstrapErrorConfig
	default:
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "ready check failed") || strings.Contains(lower, "connection refused") {
			code = VectorProviderBootstrapErrorConnectFailed
		}
	}
	return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorProviderInitFailed
}
