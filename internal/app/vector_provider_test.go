package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/qdrant"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
)

func stubQdrantStore(t *testing.T, fn func(context.Context, *logger.Logger, qdrant.Config) (vectorstore.VectorStore, error)) {
	t.Helper()
	orig := newQdrantVectorStore
	t.Cleanup(func() { newQdrantVectorStore = orig })
	newQdrantVectorStore = fn
}

func TestResolveVectorStoreQdrantSelected(t *testing.T) {
	stubQdrantConfig(t, qdrant.Config{URL: "http://qdrant:6333", Collection: "courses", NamespacePrefix: "cb", VectorDim: 3}, nil)
	inner := vectorstore.NewMemory(3)
	var captured qdrant.Config
	stubQdrantStore(t, func(_ context.Context, _ *logger.Logger, cfg qdrant.Config) (vectorstore.VectorStore, error) {
		captured = cfg
		return inner, nil
	})

	vs, err := resolveVectorStore(context.Background(), testutil.Logger(t), observability.NewMetrics(), Config{VectorProvider: "qdrant"})
	require.NoError(t, err)
	require.NotNil(t, vs)
	assert.Equal(t, "http://qdrant:6333", captured.URL)

	require.NoError(t, vs.Upsert(context.Background(), "ns", []vectorstore.Vector{{ID: "COMP-250", Values: []float32{1, 0, 0}}}))
	assert.Equal(t, 1, inner.Len("ns"))
}

func TestResolveVectorStoreNoneIsNil(t *testing.T) {
	vs, err := resolveVectorStore(context.Background(), testutil.Logger(t), nil, Config{VectorProvider: "none"})
	require.NoError(t, err)
	assert.Nil(t, vs)
}

func TestResolveVectorStoreBootstrapFailure(t *testing.T) {
	stubQdrantConfig(t, qdrant.Config{URL: "http://qdrant:6333", Collection: "courses", VectorDim: 3}, nil)
	stubQdrantStore(t, func(context.Context, *logger.Logger, qdrant.Config) (vectorstore.VectorStore, error) {
		return nil, fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: errors.New("connection refused")})
	})

	_, err := resolveVectorStore(context.Background(), testutil.Logger(t), nil, Config{VectorProvider: "qdrant"})
	var berr *VectorProviderBootstrapError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, VectorProviderBootstrapErrorConnectFailed, berr.Code)
}

func TestResolveVectorStoreConfigFailure(t *testing.T) {
	stubQdrantConfig(t, qdrant.Config{}, &qdrant.ConfigError{Code: qdrant.ConfigErrorMissingURL})
	_, err := resolveVectorStore(context.Background(), testutil.Logger(t), nil, Config{VectorProvider: "qdrant"})
	var berr *VectorProviderBootstrapError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, VectorProviderBootstrapErrorCode(VectorProviderConfigErrorMissingQdrantURL), berr.Code)
}

func TestClassifyVectorProviderBootstrapError(t *testing.T) {
	unreachable := &qdrant.OperationError{Code: qdrant.OperationErrorTimeout, Operation: "ready"}
	assert.Equal(t, VectorProviderBootstrapErrorConnectFailed,
		vectorProviderBootstrapErrorCode(classifyVectorProviderBootstrapError("qdrant", unreachable)))
	assert.Equal(t, VectorProviderBootstrapErrorProviderInitFailed,
		vectorProviderBootstrapErrorCode(classifyVectorProviderBootstrapError("qdrant", errors.New("collection dim mismatch"))))
	assert.Equal(t, VectorProviderBootstrapErrorConnectFailed,
		vectorProviderBootstrapErrorCode(classifyVectorProviderBootstrapError("qdrant", errors.New("ready check failed: 503"))))
}
