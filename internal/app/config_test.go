package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VECTOR_PROVIDER", "none")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sql", cfg.StoreBackend)
	assert.Equal(t, 12, cfg.Engine.MaxEntries)
	assert.Equal(t, "courses", cfg.Semantic.Namespace)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	_, err := LoadConfig()
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "StoreBackend", cerr.Field)
	assert.Equal(t, "oneof=sql neo4j", cerr.Rule)
}

func TestLoadConfigNeo4jNeedsURI(t *testing.T) {
	t.Setenv("STORE_BACKEND", "neo4j")
	t.Setenv("NEO4J_URI", "")
	_, err := LoadConfig()
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "Neo4jURI", cerr.Field)
}

func TestLoadConfigRequiredAuthNeedsSecret(t *testing.T) {
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}
