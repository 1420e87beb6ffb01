package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

const defaultTitleTTL = 5 * time.Minute

type titleSnapshot struct {
	index    *TitleIndex
	loadedAt time.Time
}

// SQLStore serves the Store contract from the relational catalogue.
//
// Titles for fuzzy lookup are cached as an immutable snapshot that is swapped
// atomically once it is older than the TTL; an offline catalogue refresh shows
// up on the next swap.
type SQLStore struct {
	courses repos.CourseRepo
	edges   repos.PrereqEdgeRepo
	matcher *Matcher
	log     *logger.Logger

	titleTTL  time.Duration
	titles    atomic.Pointer[titleSnapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

type SQLStoreOption func(*SQLStore)

func WithTitleTTL(d time.Duration) SQLStoreOption {
	return func(s *SQLStore) {
		if d > 0 {
			s.titleTTL = d
		}
	}
}

func NewSQLStore(courses repos.CourseRepo, edges repos.PrereqEdgeRepo, matcher *Matcher, baseLog *logger.Logger, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{
		courses:  courses,
		edges:    edges,
		matcher:  matcher,
		log:      baseLog.With("service", "CatalogSQLStore"),
		titleTTL: defaultTitleTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (*types.Course, bool, error) {
	c, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, false, classifyStoreError("get_course", err)
	}
	return c, c != nil, nil
}

func (s *SQLStore) GetCourses(ctx context.Context, ids []string) (map[string]*types.Course, error) {
	out := make(map[string]*types.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.courses.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, classifyStoreError("get_courses", err)
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

func (s *SQLStore) GetIncomingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error) {
	rows, err := s.edges.GetByDestinationIDs(dbctx.Context{Ctx: ctx}, []string{id})
	if err != nil {
		return nil, classifyStoreError("get_incoming_edges", err)
	}
	return derefEdges(rows), nil
}

func (s *SQLStore) GetOutgoingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error) {
	rows, err := s.edges.GetBySourceIDs(dbctx.Context{Ctx: ctx}, []string{id})
	if err != nil {
		return nil, classifyStoreError("get_outgoing_edges", err)
	}
	return derefEdges(rows), nil
}

func (s *SQLStore) GetRequirements(ctx context.Context, ids []string) (map[string][]types.PrereqEdge, error) {
	out := make(map[string][]types.PrereqEdge, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.edges.GetByDestinationIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, classifyStoreError("get_requirements", err)
	}
	for _, r := range rows {
		if r != nil {
			out[r.DestinationID] = append(out[r.DestinationID], *r)
		}
	}
	return out, nil
}

func (s *SQLStore) ListCourses(ctx context.Context, f CourseFilter) ([]*types.Course, error) {
	rows, err := s.courses.Find(dbctx.Context{Ctx: ctx}, repos.CourseQuery{
		Subject:      f.Subject,
		NumberPrefix: f.NumberPrefix(),
		Term:         f.Term,
		Limit:        f.Limit,
	})
	if err != nil {
		return nil, classifyStoreError("list_courses", err)
	}
	return rows, nil
}

func (s *SQLStore) FindByText(ctx context.Context, text string) ([]Candidate, error) {
	idx, err := s.titleIndex(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(text, idx), nil
}

func (s *SQLStore) titleIndex(ctx context.Context) (*TitleIndex, error) {
	if snap := s.titles.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.titleTTL {
		return snap.index, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	// another request may have refreshed while we waited
	if snap := s.titles.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.titleTTL {
		return snap.index, nil
	}

	rows, err := s.courses.ListTitles(dbctx.Context{Ctx: ctx})
	if err != nil {
		if snap := s.titles.Load(); snap != nil {
			s.log.Warn("Title index refresh failed; serving stale snapshot", "error", err)
			return snap.index, nil
		}
		return nil, classifyStoreError("list_titles", err)
	}
	entries := make([]TitleEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, TitleEntry{ID: r.ID, Title: r.Title})
	}
	idx := NewTitleIndex(entries)
	s.titles.Store(&titleSnapshot{index: idx, loadedAt: s.now()})
	s.log.Debug("Title index refreshed", "titles", idx.Len())
	return idx, nil
}

func derefEdges(rows []*types.PrereqEdge) []types.PrereqEdge {
	out := make([]types.PrereqEdge, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
