package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/data/db"
	"github.com/yungbote/coursebridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Addr:           ":0",
		StoreBackend:   "sql",
		VectorProvider: "memory",
		AutoMigrate:    true,
		DB: db.Config{
			Driver:     db.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "catalogue.db"),
		},
		Engine: advising.DefaultConfig(),
	}
}

func TestNewWithConfigServesContext(t *testing.T) {
	ctx := context.Background()
	a, err := NewWithConfig(ctx, testutil.Logger(t), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })

	// No embedder: the retriever and indexer stay unwired.
	assert.Nil(t, a.Services.Retriever)
	assert.Nil(t, a.Services.Indexer)
	assert.NotNil(t, a.Services.Index)

	gdb := a.DB.DB()
	testutil.SeedCourses(t, gdb,
		testutil.Course("MATH-140", "Calculus 1"),
		testutil.Course("MATH-141", "Calculus 2"),
	)
	testutil.SeedEdge(t, gdb, "MATH-140", "MATH-141", types.EdgePrereq)

	body, err := json.Marshal(map[string]any{
		"question": "Can I take MATH 141?",
		"completions": []map[string]any{
			{"course_id": "MATH-140", "status": "completed", "term": "fall", "year": 2025},
		},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/context", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Bundle advising.Bundle `json:"bundle"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	bundle := resp.Bundle
	require.Len(t, bundle.Verdicts, 1)
	assert.Equal(t, "MATH-141", bundle.Verdicts[0].CourseID)
	assert.Equal(t, eligibility.StatusEligible, bundle.Verdicts[0].Status)
	require.NotEmpty(t, bundle.Entries)
	assert.Equal(t, "MATH-141", bundle.Entries[0].CourseID)
}

func TestNewWithConfigReadiness(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.VectorProvider = "none"
	a, err := NewWithConfig(ctx, testutil.Logger(t), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(ctx) })
	assert.Nil(t, a.Services.Index)

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestNewWithConfigNeo4jBackendNeedsClient(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.StoreBackend = "neo4j"
	_, err := NewWithConfig(ctx, testutil.Logger(t), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEO4J_URI")
}

func TestShutdownBeforeRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var a *App
	assert.NoError(t, a.Shutdown(ctx))
}
