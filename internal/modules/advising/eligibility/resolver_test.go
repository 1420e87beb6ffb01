package eligibility

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	apperrors "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type fakeStore struct {
	courses map[string]*types.Course
	edges   []types.PrereqEdge
	err     error
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{courses: map[string]*types.Course{}}
	for _, id := range ids {
		s.courses[id] = &types.Course{ID: id}
	}
	return s
}

func (s *fakeStore) edge(src, dst string, kind types.EdgeKind) *fakeStore {
	s.edges = append(s.edges, types.PrereqEdge{SourceID: src, DestinationID: dst, Kind: kind})
	return s
}

func (s *fakeStore) GetCourse(_ context.Context, id string) (*types.Course, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	c, ok := s.courses[id]
	return c, ok, nil
}

func (s *fakeStore) GetCourses(_ context.Context, ids []string) (map[string]*types.Course, error) {
	out := map[string]*types.Course{}
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *fakeStore) GetIncomingEdges(_ context.Context, id string) ([]types.PrereqEdge, error) {
	var out []types.PrereqEdge
	for _, e := range s.edges {
		if e.DestinationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetOutgoingEdges(_ context.Context, id string) ([]types.PrereqEdge, error) {
	var out []types.PrereqEdge
	for _, e := range s.edges {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetRequirements(ctx context.Context, ids []string) (map[string][]types.PrereqEdge, error) {
	out := map[string][]types.PrereqEdge{}
	for _, id := range ids {
		if in, _ := s.GetIncomingEdges(ctx, id); len(in) > 0 {
			out[id] = in
		}
	}
	return out, nil
}

func (s *fakeStore) ListCourses(context.Context, catalog.CourseFilter) ([]*types.Course, error) {
	return nil, nil
}

func (s *fakeStore) FindByText(context.Context, string) ([]catalog.Candidate, error) {
	return nil, nil
}

func rec(id string, st types.CompletionStatus) types.CompletionRecord {
	return types.CompletionRecord{CourseID: id, Status: st}
}

func resolve(t *testing.T, s *fakeStore, target string, completions ...types.CompletionRecord) Verdict {
	t.Helper()
	v, err := NewResolver(s, logger.Nop()).Resolve(context.Background(), target, completions)
	require.NoError(t, err)
	return v
}

func TestNoIncomingEdgesIsAlwaysEligible(t *testing.T) {
	s := newFakeStore("COMP-202")
	sets := [][]types.CompletionRecord{
		nil,
		{rec("COMP-202", types.StatusPlanned)},
		{rec("MATH-140", types.StatusCompleted), rec("MATH-141", types.StatusInProgress)},
	}
	for i, set := range sets {
		v := resolve(t, s, "COMP-202", set...)
		assert.Equal(t, StatusEligible, v.Status, "set %d", i)
		assert.Empty(t, v.Unmet)
	}
}

func TestPrereqNeedsCompletion(t *testing.T) {
	s := newFakeStore("MATH-140", "MATH-141").edge("MATH-140", "MATH-141", types.EdgePrereq)

	assert.Equal(t, StatusEligible, resolve(t, s, "MATH-141", rec("MATH-140", types.StatusCompleted)).Status)

	for _, st := range []types.CompletionStatus{types.StatusInProgress, types.StatusPlanned, ""} {
		var set []types.CompletionRecord
		if st != "" {
			set = append(set, rec("MATH-140", st))
		}
		v := resolve(t, s, "MATH-141", set...)
		assert.Equal(t, StatusIneligible, v.Status, "status %q", st)
		require.Len(t, v.Unmet, 1)
		assert.Equal(t, "MATH-140", v.Unmet[0].CourseID)
		assert.Equal(t, types.EdgePrereq, v.Unmet[0].Kind)
		assert.Equal(t, ReasonNotCompleted, v.Unmet[0].Reason)
		assert.Equal(t, st, v.Unmet[0].Have)
	}
}

func TestCoreqAcceptsConcurrentOrPlanned(t *testing.T) {
	s := newFakeStore("MATH-133", "MATH-141").edge("MATH-133", "MATH-141", types.EdgeCoreq)

	for _, st := range []types.CompletionStatus{types.StatusCompleted, types.StatusInProgress, types.StatusPlanned} {
		v := resolve(t, s, "MATH-141", rec("MATH-133", st))
		assert.Equal(t, StatusEligible, v.Status, "status %q", st)
		assert.Equal(t, []Requirement{{CourseID: "MATH-133", Kind: types.EdgeCoreq}}, v.Satisfied)
	}

	v := resolve(t, s, "MATH-141")
	require.Len(t, v.Unmet, 1)
	assert.Equal(t, ReasonNotEnrolled, v.Unmet[0].Reason)
}

func TestCoreqPlannedForLaterTermIsUnmet(t *testing.T) {
	s := newFakeStore("MATH-133", "MATH-141").edge("MATH-133", "MATH-141", types.EdgeCoreq)
	target := types.CompletionRecord{CourseID: "MATH-141", Status: types.StatusPlanned, Term: types.TermWinter, Year: 2026}

	later := types.CompletionRecord{CourseID: "MATH-133", Status: types.StatusPlanned, Term: types.TermFall, Year: 2026}
	v := resolve(t, s, "MATH-141", target, later)
	assert.Equal(t, StatusIneligible, v.Status)
	require.Len(t, v.Unmet, 1)
	assert.Equal(t, ReasonTermOrder, v.Unmet[0].Reason)

	same := types.CompletionRecord{CourseID: "MATH-133", Status: types.StatusPlanned, Term: types.TermWinter, Year: 2026}
	assert.Equal(t, StatusEligible, resolve(t, s, "MATH-141", target, same).Status)

	untimed := rec("MATH-133", types.StatusPlanned)
	assert.Equal(t, StatusEligible, resolve(t, s, "MATH-141", target, untimed).Status)
}

func TestMissingSourceIsUnsatisfiable(t *testing.T) {
	s := newFakeStore("COMP-250").edge("COMP-202", "COMP-250", types.EdgePrereq)

	v := resolve(t, s, "COMP-250", rec("COMP-202", types.StatusCompleted))
	assert.Equal(t, StatusIneligible, v.Status)
	require.Len(t, v.Unmet, 1)
	assert.Equal(t, ReasonUnknownCourse, v.Unmet[0].Reason)
	assert.Equal(t, types.StatusCompleted, v.Unmet[0].Have)
}

func TestUnknownTarget(t *testing.T) {
	v := resolve(t, newFakeStore(), "NOPE-101")
	assert.Equal(t, StatusUnknown, v.Status)
	assert.Equal(t, "NOPE-101", v.CourseID)
}

func TestAllEdgesAreMandatory(t *testing.T) {
	s := newFakeStore("COMP-206", "COMP-250", "COMP-273", "MATH-240").
		edge("COMP-206", "COMP-273", types.EdgePrereq).
		edge("COMP-250", "COMP-273", types.EdgePrereq).
		edge("MATH-240", "COMP-273", types.EdgeCoreq)

	v := resolve(t, s, "COMP-273",
		rec("COMP-206", types.StatusCompleted),
		rec("MATH-240", types.StatusInProgress),
	)
	assert.Equal(t, StatusIneligible, v.Status)
	require.Len(t, v.Unmet, 1)
	assert.Equal(t, "COMP-250", v.Unmet[0].CourseID)
	assert.Len(t, v.Satisfied, 2)
	assert.Equal(t, types.EdgePrereq, v.Satisfied[0].Kind)
}

func TestCyclesTerminate(t *testing.T) {
	s := newFakeStore("AAAA-100", "BBBB-100").
		edge("AAAA-100", "BBBB-100", types.EdgePrereq).
		edge("BBBB-100", "AAAA-100", types.EdgePrereq)
	assert.Equal(t, StatusIneligible, resolve(t, s, "AAAA-100").Status)
}

func TestStrongestRecordWins(t *testing.T) {
	s := newFakeStore("MATH-140", "MATH-141").edge("MATH-140", "MATH-141", types.EdgePrereq)
	v := resolve(t, s, "MATH-141", rec("MATH-140", types.StatusPlanned), rec("MATH-140", types.StatusCompleted))
	assert.Equal(t, StatusEligible, v.Status)
}

func TestStoreErrorPropagates(t *testing.T) {
	s := newFakeStore()
	s.err = fmt.Errorf("dial: %w", apperrors.ErrStoreUnavailable)
	_, err := NewResolver(s, logger.Nop()).Resolve(context.Background(), "MATH-141", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}
