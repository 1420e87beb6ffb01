package advising

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/semantic"
	"github.com/yungbote/coursebridge-backend/internal/observability"
	apperr "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type stubRetriever struct {
	hits []types.RetrievalHit
	err  error

	mu      sync.Mutex
	queries []string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, _ int) ([]types.RetrievalHit, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

type downStore struct{}

func (downStore) GetCourse(context.Context, string) (*types.Course, bool, error) {
	return nil, false, fmt.Errorf("get_course: %w", apperr.ErrStoreUnavailable)
}
func (downStore) GetCourses(context.Context, []string) (map[string]*types.Course, error) {
	return nil, fmt.Errorf("get_courses: %w", apperr.ErrStoreUnavailable)
}
func (downStore) GetIncomingEdges(context.Context, string) ([]types.PrereqEdge, error) {
	return nil, fmt.Errorf("edges: %w", apperr.ErrStoreUnavailable)
}
func (downStore) GetOutgoingEdges(context.Context, string) ([]types.PrereqEdge, error) {
	return nil, fmt.Errorf("edges: %w", apperr.ErrStoreUnavailable)
}
func (downStore) GetRequirements(context.Context, []string) (map[string][]types.PrereqEdge, error) {
	return nil, fmt.Errorf("edges: %w", apperr.ErrStoreUnavailable)
}
func (downStore) ListCourses(context.Context, catalog.CourseFilter) ([]*types.Course, error) {
	return nil, fmt.Errorf("list_courses: %w", apperr.ErrStoreUnavailable)
}
func (downStore) FindByText(context.Context, string) ([]catalog.Candidate, error) {
	return nil, fmt.Errorf("list_titles: %w", apperr.ErrStoreUnavailable)
}

func newCatalog(t *testing.T) *catalog.SQLStore {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.SeedCourses(t, db,
		testutil.Course("MATH-140", "Calculus 1"),
		testutil.Course("MATH-141", "Calculus 2"),
		testutil.Course("COMP-206", "Introduction to Software Systems"),
		testutil.Course("COMP-273", "Introduction to Computer Systems"),
		testutil.Course("COMP-250", "Introduction to Computer Science"),
		testutil.Course("COMP-551", "Applied Machine Learning"),
		testutil.Course("COMP-396", "Special Topics"),
		testutil.Course("COMP-397", "Special Topics"),
	)
	testutil.SeedEdge(t, db, "MATH-140", "MATH-141", types.EdgePrereq)
	testutil.SeedEdge(t, db, "COMP-206", "COMP-273", types.EdgePrereq)
	testutil.SeedEdge(t, db, "COMP-250", "COMP-273", types.EdgeCoreq)

	aliases, err := catalog.DefaultAliases()
	require.NoError(t, err)
	return catalog.NewSQLStore(repos.NewCourseRepo(db, log), repos.NewPrereqEdgeRepo(db, log), catalog.NewMatcher(aliases), log)
}

func newEngine(t *testing.T, r Retriever) *Engine {
	t.Helper()
	return NewEngine(newCatalog(t), r, DefaultConfig(), observability.NewMetrics(), testutil.Logger(t))
}

func TestResolveContextEligibleAfterCompletedPrereq(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "Can I take MATH 141?", []types.CompletionRecord{
		{CourseID: "MATH-140", Status: types.StatusCompleted},
	})
	require.NoError(t, err)

	v, ok := b.Verdict("MATH-141")
	require.True(t, ok)
	assert.Equal(t, eligibility.StatusEligible, v.Status)
	assert.False(t, b.IsPartial())

	entry, ok := b.Entry("MATH-141")
	require.True(t, ok)
	assert.True(t, entry.Found)
	assert.Equal(t, types.ProvenanceDeterministic, entry.Provenance)
	require.Len(t, entry.Requirements, 1)
	assert.Equal(t, "MATH-140", entry.Requirements[0].CourseID)
	assert.Equal(t, []types.Term{types.TermFall}, entry.OfferedTerms)
}

func TestResolveContextInProgressPrereqIsIneligible(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "can i take math-141", []types.CompletionRecord{
		{CourseID: "math 140", Status: types.StatusInProgress},
	})
	require.NoError(t, err)

	v, ok := b.Verdict("MATH-141")
	require.True(t, ok)
	assert.Equal(t, eligibility.StatusIneligible, v.Status)
	require.Len(t, v.Unmet, 1)
	assert.Equal(t, "MATH-140", v.Unmet[0].CourseID)
	assert.Equal(t, types.EdgePrereq, v.Unmet[0].Kind)
}

func TestResolveContextAssumesCompletionFromQuestion(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "Can I take COMP 273 after taking COMP 206?", []types.CompletionRecord{
		{CourseID: "COMP-250", Status: types.StatusInProgress},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"COMP-273", "COMP-206"}, b.Intent.MentionedCourses)
	assert.True(t, b.Intent.WantsEligibility)
	require.GreaterOrEqual(t, len(b.Entries), 2)
	assert.Equal(t, "COMP-273", b.Entries[0].CourseID)
	assert.Equal(t, "COMP-206", b.Entries[1].CourseID)

	require.Len(t, b.Verdicts, 1)
	v := b.Verdicts[0]
	assert.Equal(t, "COMP-273", v.CourseID)
	assert.Equal(t, eligibility.StatusEligible, v.Status)
	assert.True(t, v.Hypothetical())
	assert.Equal(t, []string{"COMP-206"}, v.Assumed)
}

func TestResolveContextUnknownCourse(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "Can I take PHYS 999?", nil)
	require.NoError(t, err)

	v, ok := b.Verdict("PHYS-999")
	require.True(t, ok)
	assert.Equal(t, eligibility.StatusUnknown, v.Status)
	entry, ok := b.Entry("PHYS-999")
	require.True(t, ok)
	assert.False(t, entry.Found)
}

func TestResolveContextAliasReference(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "Can I take calc 2?", []types.CompletionRecord{
		{CourseID: "MATH-140", Status: types.StatusCompleted},
	})
	require.NoError(t, err)
	require.NotEmpty(t, b.Entries)
	assert.Equal(t, "MATH-141", b.Entries[0].CourseID)
	assert.Equal(t, matchedByAlias, b.Entries[0].MatchedBy)
	v, ok := b.Verdict("MATH-141")
	require.True(t, ok)
	assert.Equal(t, eligibility.StatusEligible, v.Status)
}

func TestResolveContextAmbiguousTitle(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "tell me about special topics", nil)
	require.NoError(t, err)

	require.Len(t, b.Ambiguities, 1)
	amb := b.Ambiguities[0]
	assert.Equal(t, "COMP-396", amb.Chosen)
	assert.Equal(t, []string{"COMP-397"}, amb.Alternatives)

	entry, ok := b.Entry("COMP-396")
	require.True(t, ok)
	assert.True(t, entry.Ambiguous)
	assert.Equal(t, types.ProvenanceDeterministic, entry.Provenance)
}

func TestResolveContextDependents(t *testing.T) {
	e := newEngine(t, &stubRetriever{})
	b, err := e.ResolveContext(context.Background(), "What can I take after MATH 140?", nil)
	require.NoError(t, err)

	entry, ok := b.Entry("MATH-140")
	require.True(t, ok)
	require.Len(t, entry.Dependents, 1)
	assert.Equal(t, "MATH-141", entry.Dependents[0].CourseID)

	// the course after "after" is already done, so it gets no verdict
	assert.Equal(t, []string{"MATH-140"}, b.Intent.AssumedCompleted)
	_, ok = b.Verdict("MATH-140")
	assert.False(t, ok)
	assert.Nil(t, b.Intent.Planning)
}

func TestResolveContextSemanticUnavailableDegrades(t *testing.T) {
	r := &stubRetriever{err: &semantic.RetrievalError{Reason: semantic.ReasonIndex, Err: errors.New("dial tcp: refused")}}
	e := newEngine(t, r)

	b, err := e.ResolveContext(context.Background(), "which courses cover machine learning", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{PartialSemanticUnavailable}, b.Partial)
	assert.True(t, b.Intent.NeedsSemanticFallback)

	// the alias still resolves deterministically
	require.Len(t, b.Entries, 1)
	assert.Equal(t, "COMP-551", b.Entries[0].CourseID)
}

func TestResolveContextNilRetrieverIsPartialOnlyWhenNeeded(t *testing.T) {
	e := newEngine(t, nil)

	b, err := e.ResolveContext(context.Background(), "Can I take MATH 141?", nil)
	require.NoError(t, err)
	assert.False(t, b.IsPartial())

	b, err = e.ResolveContext(context.Background(), "what is a good elective", nil)
	require.NoError(t, err)
	assert.True(t, b.IsPartial())
}

func TestResolveContextSemanticTierAfterDeterministic(t *testing.T) {
	r := &stubRetriever{hits: []types.RetrievalHit{
		{CourseID: "MATH-141", Score: 0.95, Provenance: types.ProvenanceSemantic},
		{CourseID: "COMP-250", Score: 0.4, Provenance: types.ProvenanceSemantic},
		{CourseID: "COMP-551", Score: 0.7, Provenance: types.ProvenanceSemantic},
		{CourseID: "GONE-100", Score: 0.9, Provenance: types.ProvenanceSemantic},
	}}
	e := newEngine(t, r)

	b, err := e.ResolveContext(context.Background(), "What is the difference between MATH 141 and COMP 250?", nil)
	require.NoError(t, err)

	var got []string
	for _, entry := range b.Entries {
		got = append(got, entry.CourseID)
	}
	assert.Equal(t, []string{"MATH-141", "COMP-250", "COMP-551"}, got)
	assert.Equal(t, types.ProvenanceSemantic, b.Entries[2].Provenance)
	assert.Equal(t, 1, b.StaleSemantic)
	// question plus one query per compared course
	assert.Len(t, r.queries, 3)
	assert.Contains(t, r.queries, "Calculus 2. Calculus 2 description.")
}

func TestResolveContextStoreUnavailableIsFatal(t *testing.T) {
	e := NewEngine(downStore{}, &stubRetriever{}, DefaultConfig(), nil, testutil.Logger(t))
	_, err := e.ResolveContext(context.Background(), "Can I take MATH 141?", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestResolveContextRejectsBadInput(t *testing.T) {
	e := newEngine(t, &stubRetriever{})

	_, err := e.ResolveContext(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = e.ResolveContext(context.Background(), "Can I take MATH 141?", []types.CompletionRecord{{CourseID: "calculus", Status: types.StatusCompleted}})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = e.ResolveContext(context.Background(), "Can I take MATH 141?", []types.CompletionRecord{{CourseID: "MATH-140", Status: "passed"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

// keywordEmbedder maps text onto a tiny fixed vocabulary.
type keywordEmbedder struct{}

var vocabulary = []string{"calculus", "machine", "systems", "software"}

func (keywordEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v := make([]float32, len(vocabulary)+1)
		v[len(vocabulary)] = 0.01
		lower := strings.ToLower(in)
		for j, w := range vocabulary {
			if strings.Contains(lower, w) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestResolveContextWithInProcessIndex(t *testing.T) {
	idx := vectorstore.NewMemory(len(vocabulary) + 1)
	emb := keywordEmbedder{}
	docs := map[string]string{
		"COMP-551": "Applied Machine Learning",
		"COMP-206": "Introduction to Software Systems",
		"MATH-141": "Calculus 2",
	}
	var vectors []vectorstore.Vector
	for id, text := range docs {
		v, err := emb.Embed(context.Background(), []string{text})
		require.NoError(t, err)
		vectors = append(vectors, vectorstore.Vector{ID: id, Values: v[0]})
	}
	require.NoError(t, idx.Upsert(context.Background(), "courses", vectors))

	r := semantic.NewRetriever(emb, idx, semantic.DefaultConfig(), nil, testutil.Logger(t))
	e := newEngine(t, r)

	b, err := e.ResolveContext(context.Background(), "I want something about software systems design", nil)
	require.NoError(t, err)
	require.NotEmpty(t, b.Entries)
	assert.Equal(t, "COMP-206", b.Entries[0].CourseID)
	assert.Equal(t, types.ProvenanceSemantic, b.Entries[0].Provenance)
	assert.False(t, b.IsPartial())

	again, err := e.ResolveContext(context.Background(), "I want something about software systems design", nil)
	require.NoError(t, err)
	assert.Equal(t, b.Entries, again.Entries)
}
