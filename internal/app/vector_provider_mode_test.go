package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/platform/qdrant"
)

func stubQdrantConfig(t *testing.T, cfg qdrant.Config, err error) {
	t.Helper()
	orig := resolveQdrantConfig
	t.Cleanup(func() { resolveQdrantConfig = orig })
	resolveQdrantConfig = func() (qdrant.Config, error) { return cfg, err }
}

func TestResolveVectorProviderConfigModes(t *testing.T) {
	stubQdrantConfig(t, qdrant.Config{URL: "http://qdrant:6333", Collection: "courses", VectorDim: 1536}, nil)

	got, err := resolveVectorProviderConfig("qdrant", 0)
	require.NoError(t, err)
	assert.Equal(t, VectorProviderQdrant, got.Provider)
	assert.Equal(t, "courses", got.Qdrant.Collection)

	got, err = resolveVectorProviderConfig("memory", 256)
	require.NoError(t, err)
	assert.Equal(t, VectorProviderMemory, got.Provider)
	assert.Equal(t, 256, got.MemoryDim)

	got, err = resolveVectorProviderConfig("", 0)
	require.NoError(t, err)
	assert.Equal(t, VectorProviderNone, got.Provider)
}

func TestResolveVectorProviderConfigUnknown(t *testing.T) {
	_, err := resolveVectorProviderConfig("pinecone", 0)
	var cerr *VectorProviderConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, VectorProviderConfigErrorInvalidProvider, cerr.Code)
}

func TestResolveVectorProviderConfigMapsQdrantErrors(t *testing.T) {
	cases := map[qdrant.ConfigErrorCode]VectorProviderConfigErrorCode{
		qdrant.ConfigErrorMissingURL:        VectorProviderConfigErrorMissingQdrantURL,
		qdrant.ConfigErrorInvalidURL:        VectorProviderConfigErrorInvalidQdrantURL,
		qdrant.ConfigErrorMissingCollection: VectorProviderConfigErrorMissingQdrantColl,
		qdrant.ConfigErrorMissingVectorDim:  VectorProviderConfigErrorMissingQdrantVector,
		qdrant.ConfigErrorInvalidVectorDim:  VectorProviderConfigErrorInvalidQdrantVector,
	}
	for in, want := range cases {
		stubQdrantConfig(t, qdrant.Config{}, &qdrant.ConfigError{Code: in})
		_, err := resolveVectorProviderConfig("qdrant", 0)
		var cerr *VectorProviderConfigError
		require.True(t, errors.As(err, &cerr), "code %s", in)
		assert.Equal(t, want, cerr.Code)

		var qerr *qdrant.ConfigError
		assert.True(t, errors.As(err, &qerr))
	}

	stubQdrantConfig(t, qdrant.Config{}, errors.New("boom"))
	_, err := resolveVectorProviderConfig("qdrant", 0)
	var cerr *VectorProviderConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, VectorProviderConfigErrorUnknownQdrantFailure, cerr.Code)
}
