package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	apperr "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type fakeEngine struct {
	gotQuestion    string
	gotCompletions []types.CompletionRecord
	err            error
}

func (f *fakeEngine) ResolveContext(_ context.Context, q string, c []types.CompletionRecord) (advising.Bundle, error) {
	f.gotQuestion, f.gotCompletions = q, c
	if f.err != nil {
		return advising.Bundle{}, f.err
	}
	return advising.Bundle{Question: q, Partial: []string{advising.PartialSemanticUnavailable}}, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, id string, _ []types.CompletionRecord) (eligibility.Verdict, error) {
	return eligibility.Verdict{CourseID: id, Status: eligibility.StatusEligible}, nil
}

type mapStore struct {
	catalog.Store
	courses map[string]*types.Course
	edges   []types.PrereqEdge
}

func (m mapStore) GetCourse(_ context.Context, id string) (*types.Course, bool, error) {
	c, ok := m.courses[id]
	return c, ok, nil
}

func (m mapStore) GetIncomingEdges(_ context.Context, id string) ([]types.PrereqEdge, error) {
	var out []types.PrereqEdge
	for _, e := range m.edges {
		if e.DestinationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m mapStore) GetOutgoingEdges(_ context.Context, id string) ([]types.PrereqEdge, error) {
	var out []types.PrereqEdge
	for _, e := range m.edges {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func newRouter(engine ContextResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := mapStore{
		courses: map[string]*types.Course{
			"MATH-140": {ID: "MATH-140", Title: "Calculus 1", OfferedFall: true},
			"MATH-141": {ID: "MATH-141", Title: "Calculus 2", OfferedWinter: true},
		},
		edges: []types.PrereqEdge{{SourceID: "MATH-140", DestinationID: "MATH-141", Kind: types.EdgePrereq}},
	}
	h := NewAdvisingHandler(logger.Nop(), engine, fakeResolver{}, store)
	r := gin.New()
	r.POST("/v1/context", h.ResolveContext)
	r.POST("/v1/eligibility", h.CheckEligibility)
	r.GET("/v1/courses/:id", h.GetCourse)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestResolveContextHandler(t *testing.T) {
	eng := &fakeEngine{}
	rec := do(newRouter(eng), http.MethodPost, "/v1/context", map[string]any{
		"question": "Can I take MATH 141?",
		"completions": []map[string]any{
			{"course_id": "math 140", "status": "completed", "term": "Fall", "year": 2025},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Can I take MATH 141?", eng.gotQuestion)
	require.Len(t, eng.gotCompletions, 1)
	assert.Equal(t, "MATH-140", eng.gotCompletions[0].CourseID)
	assert.Equal(t, types.TermFall, eng.gotCompletions[0].Term)
	assert.Contains(t, rec.Body.String(), advising.PartialSemanticUnavailable)
}

func TestResolveContextHandlerValidation(t *testing.T) {
	r := newRouter(&fakeEngine{})

	rec := do(r, http.MethodPost, "/v1/context", map[string]any{"question": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/v1/context", map[string]any{
		"question":    "hi",
		"completions": []map[string]any{{"course_id": "MATH-140", "status": "passed"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/v1/context", map[string]any{
		"question":    "hi",
		"completions": []map[string]any{{"course_id": "calculus", "status": "completed"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_argument")
}

func TestResolveContextHandlerStoreUnavailable(t *testing.T) {
	r := newRouter(&fakeEngine{err: fmt.Errorf("lookup: %w", apperr.ErrStoreUnavailable)})
	rec := do(r, http.MethodPost, "/v1/context", map[string]any{"question": "Can I take MATH 141?"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_unavailable")
}

func TestCheckEligibilityHandler(t *testing.T) {
	rec := do(newRouter(&fakeEngine{}), http.MethodPost, "/v1/eligibility", map[string]any{"course_id": "math141"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"course_id":"MATH-141"`)
	assert.Contains(t, rec.Body.String(), `"status":"eligible"`)
}

func TestGetCourseHandler(t *testing.T) {
	r := newRouter(&fakeEngine{})

	rec := do(r, http.MethodGet, "/v1/courses/MATH-141", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Course courseView `json:"course"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Calculus 2", body.Course.Course.Title)
	require.Len(t, body.Course.Requirements, 1)
	assert.Equal(t, "MATH-140", body.Course.Requirements[0].CourseID)
	assert.Equal(t, []types.Term{types.TermWinter}, body.Course.OfferedTerms)

	rec = do(r, http.MethodGet, "/v1/courses/MATH-999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodGet, "/v1/courses/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
