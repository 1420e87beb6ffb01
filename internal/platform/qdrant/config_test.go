package qdrant

import (
	"errors"
	"testing"
	"time"
)

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "courses")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_TIMEOUT", "2s")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.URL != "http://qdrant:6333" || cfg.Collection != "courses" {
		t.Fatalf("cfg: got=%+v", cfg)
	}
	if cfg.NamespacePrefix != "cb" {
		t.Fatalf("NamespacePrefix default: want=%q got=%q", "cb", cfg.NamespacePrefix)
	}
	if cfg.VectorDim != 1536 || cfg.Timeout != 2*time.Second {
		t.Fatalf("dim/timeout: got=%d %s", cfg.VectorDim, cfg.Timeout)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		want ConfigErrorCode
	}{
		{"missing url", "", "1536", ConfigErrorMissingURL},
		{"invalid url", "qdrant:6333", "1536", ConfigErrorInvalidURL},
		{"missing dim", "http://qdrant:6333", "", ConfigErrorMissingVectorDim},
		{"non numeric dim", "http://qdrant:6333", "wide", ConfigErrorInvalidVectorDim},
		{"negative dim", "http://qdrant:6333", "-1", ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)

			_, err := ResolveConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, cfgErr.Code)
			}
		})
	}
}

func TestValidateConfigMissingCollection(t *testing.T) {
	err := ValidateConfig(Config{URL: "http://qdrant:6333", VectorDim: 3}, true)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorMissingCollection {
		t.Fatalf("expected missing collection, got=%v", err)
	}
}
