package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gorm.io/datatypes"

	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/neo4jdb"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

// Neo4jStore serves the course graph from the mirror written by SyncCourseGraph.
// Placeholder nodes created for dangling edges count as missing courses.
type Neo4jStore struct {
	client  *neo4jdb.Client
	matcher *catalog.Matcher
	log     *logger.Logger

	titleTTL  time.Duration
	titles    atomic.Pointer[titleSnapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

type titleSnapshot struct {
	index    *catalog.TitleIndex
	loadedAt time.Time
}

func NewNeo4jStore(client *neo4jdb.Client, matcher *catalog.Matcher, baseLog *logger.Logger) *Neo4jStore {
	return &Neo4jStore{
		client:   client,
		matcher:  matcher,
		log:      baseLog.With("service", "CatalogNeo4jStore"),
		titleTTL: 5 * time.Minute,
		now:      time.Now,
	}
}

const courseProjection = `c {.*} AS c`

func (s *Neo4jStore) GetCourse(ctx context.Context, id string) (*types.Course, bool, error) {
	got, err := s.GetCourses(ctx, []string{id})
	if err != nil {
		return nil, false, err
	}
	c, ok := got[id]
	return c, ok, nil
}

func (s *Neo4jStore) GetCourses(ctx context.Context, ids []string) (map[string]*types.Course, error) {
	out := make(map[string]*types.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	recs, err := s.read(ctx, "get_courses", `
MATCH (c:Course)
WHERE c.id IN $ids AND coalesce(c.placeholder, false) = false
RETURN `+courseProjection, map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		props, _, err := neo4j.GetRecordValue[map[string]any](rec, "c")
		if err != nil {
			return nil, storeError("get_courses", err)
		}
		c := courseFromProps(props)
		out[c.ID] = c
	}
	return out, nil
}

func (s *Neo4jStore) GetIncomingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error) {
	return s.edges(ctx, "get_incoming_edges", `
MATCH (d:Course {id: $id})-[e:REQUIRES]->(s:Course)
RETURN s.id AS source, d.id AS destination, e.kind AS kind
ORDER BY kind DESC, source ASC
`, map[string]any{"id": id})
}

func (s *Neo4jStore) GetOutgoingEdges(ctx context.Context, id string) ([]types.PrereqEdge, error) {
	return s.edges(ctx, "get_outgoing_edges", `
MATCH (d:Course)-[e:REQUIRES]->(s:Course {id: $id})
RETURN s.id AS source, d.id AS destination, e.kind AS kind
ORDER BY kind DESC, destination ASC
`, map[string]any{"id": id})
}

func (s *Neo4jStore) GetRequirements(ctx context.Context, ids []string) (map[string][]types.PrereqEdge, error) {
	out := make(map[string][]types.PrereqEdge, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	edges, err := s.edges(ctx, "get_requirements", `
MATCH (d:Course)-[e:REQUIRES]->(s:Course)
WHERE d.id IN $ids
RETURN s.id AS source, d.id AS destination, e.kind AS kind
ORDER BY destination ASC, kind DESC, source ASC
`, map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		out[e.DestinationID] = append(out[e.DestinationID], e)
	}
	return out, nil
}

func (s *Neo4jStore) ListCourses(ctx context.Context, f catalog.CourseFilter) ([]*types.Course, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	recs, err := s.read(ctx, "list_courses", `
MATCH (c:Course)
WHERE coalesce(c.placeholder, false) = false
  AND ($subject = '' OR c.subject = $subject)
  AND ($prefix = '' OR c.number STARTS WITH $prefix)
  AND ($term = ''
       OR ($term = 'fall' AND c.offered_fall)
       OR ($term = 'winter' AND c.offered_winter)
       OR ($term = 'summer' AND c.offered_summer))
RETURN `+courseProjection+`
ORDER BY c.id
LIMIT $limit
`, map[string]any{
		"subject": strings.ToUpper(strings.TrimSpace(f.Subject)),
		"prefix":  f.NumberPrefix(),
		"term":    string(f.Term),
		"limit":   int64(limit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.Course, 0, len(recs))
	for _, rec := range recs {
		props, _, err := neo4j.GetRecordValue[map[string]any](rec, "c")
		if err != nil {
			return nil, storeError("list_courses", err)
		}
		out = append(out, courseFromProps(props))
	}
	return out, nil
}

func (s *Neo4jStore) FindByText(ctx context.Context, text string) ([]catalog.Candidate, error) {
	idx, err := s.titleIndex(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(text, idx), nil
}

func (s *Neo4jStore) edges(ctx context.Context, op, cypher string, params map[string]any) ([]types.PrereqEdge, error) {
	recs, err := s.read(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]types.PrereqEdge, 0, len(recs))
	for _, rec := range recs {
		src, _, err1 := neo4j.GetRecordValue[string](rec, "source")
		dst, _, err2 := neo4j.GetRecordValue[string](rec, "destination")
		kind, _, err3 := neo4j.GetRecordValue[string](rec, "kind")
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, storeError(op, err)
		}
		out = append(out, types.PrereqEdge{SourceID: src, DestinationID: dst, Kind: types.EdgeKind(kind)})
	}
	return out, nil
}

func (s *Neo4jStore) fresh() *titleSnapshot {
	if snap := s.titles.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.titleTTL {
		return snap
	}
	return nil
}

// titleIndex serves the cached snapshot without locking; only a refresh
// serializes, and readers keep the old snapshot until the new one is stored.
func (s *Neo4jStore) titleIndex(ctx context.Context) (*catalog.TitleIndex, error) {
	if snap := s.fresh(); snap != nil {
		return snap.index, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if snap := s.fresh(); snap != nil {
		return snap.index, nil
	}

	recs, err := s.read(ctx, "list_titles", `
MATCH (c:Course)
WHERE coalesce(c.placeholder, false) = false
RETURN c.id AS id, c.title AS title
ORDER BY id
`, nil)
	if err != nil {
		if snap := s.titles.Load(); snap != nil {
			s.log.Warn("Title index refresh failed; serving stale snapshot", "error", err)
			return snap.index, nil
		}
		return nil, err
	}
	rows := make([]catalog.TitleEntry, 0, len(recs))
	for _, rec := range recs {
		id, _, _ := neo4j.GetRecordValue[string](rec, "id")
		title, _, _ := neo4j.GetRecordValue[string](rec, "title")
		rows = append(rows, catalog.TitleEntry{ID: id, Title: title})
	}
	idx := catalog.NewTitleIndex(rows)
	s.titles.Store(&titleSnapshot{index: idx, loadedAt: s.now()})
	return idx, nil
}

func (s *Neo4jStore) read(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if s.client == nil || s.client.Driver == nil {
		return nil, &catalog.StoreError{Op: op, Reason: catalog.ReasonConnect, Err: errors.New("neo4j client not configured")}
	}
	session := s.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, storeError(op, err)
	}
	return out.([]*neo4j.Record), nil
}

func storeError(op string, err error) error {
	se := &catalog.StoreError{Op: op, Reason: catalog.ReasonQuery, Err: err}
	var neoErr *neo4j.Neo4jError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		se.Reason = catalog.ReasonTimeout
	case errors.Is(err, context.Canceled):
		se.Reason = catalog.ReasonCanceled
	case neo4j.IsConnectivityError(err):
		se.Reason = catalog.ReasonConnect
	case errors.As(err, &neoErr):
		se.Code = neoErr.Code
	}
	return se
}

func courseFromProps(p map[string]any) *types.Course {
	str := func(k string) string {
		v, _ := p[k].(string)
		return v
	}
	flag := func(k string) bool {
		v, _ := p[k].(bool)
		return v
	}
	c := &types.Course{
		ID:            str("id"),
		Subject:       str("subject"),
		Number:        str("number"),
		Title:         str("title"),
		Description:   str("description"),
		OfferedBy:     str("offered_by"),
		OfferedFall:   flag("offered_fall"),
		OfferedWinter: flag("offered_winter"),
		OfferedSummer: flag("offered_summer"),
		PrereqText:    str("prereq_text"),
		CoreqText:     str("coreq_text"),
	}
	switch v := p["credits"].(type) {
	case float64:
		c.Credits = v
	case int64:
		c.Credits = float64(v)
	}
	if m := str("metadata_json"); m != "" {
		c.Metadata = datatypes.JSON(m)
	}
	return c
}
