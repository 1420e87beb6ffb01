package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/neo4jdb"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

const syncPageSize = 500

type SyncStats struct {
	Courses int `json:"courses"`
	Edges   int `json:"edges"`
}

// SyncCourseGraph mirrors the relational catalogue into Neo4j as
// (:Course)-[:REQUIRES {kind}]->(:Course) where the arrow points from the
// course that is taken later to its requirement. Edges whose endpoints are
// unknown still get a placeholder node so that missing courses stay visible.
func SyncCourseGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, courses repos.CourseRepo, edges repos.PrereqEdgeRepo) (SyncStats, error) {
	var st SyncStats
	if client == nil || client.Driver == nil {
		return st, fmt.Errorf("neo4j course graph sync: no client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	dbc := dbctx.Context{Ctx: ctx}

	session := client.WriteSession(ctx)
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
		`CREATE INDEX course_subject_idx IF NOT EXISTS FOR (c:Course) ON (c.subject)`,
	} {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	after := ""
	for {
		rows, err := courses.ListPage(dbc, after, syncPageSize)
		if err != nil {
			return st, fmt.Errorf("neo4j course graph sync: list courses: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		nodes := make([]map[string]any, 0, len(rows))
		for _, c := range rows {
			nodes = append(nodes, courseNode(c, now))
		}
		if err := runWrite(ctx, session, `
UNWIND $nodes AS n
MERGE (c:Course {id: n.id})
SET c += n
`, map[string]any{"nodes": nodes}); err != nil {
			return st, fmt.Errorf("neo4j course graph sync: courses: %w", err)
		}
		st.Courses += len(rows)
		after = rows[len(rows)-1].ID
		if len(rows) < syncPageSize {
			break
		}
	}

	for offset := 0; ; offset += syncPageSize {
		rows, err := edges.ListPage(dbc, offset, syncPageSize)
		if err != nil {
			return st, fmt.Errorf("neo4j course graph sync: list edges: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		rels := make([]map[string]any, 0, len(rows))
		for _, e := range rows {
			if e == nil || !e.Kind.Valid() {
				continue
			}
			rels = append(rels, map[string]any{
				"source":      e.SourceID,
				"destination": e.DestinationID,
				"kind":        string(e.Kind),
				"synced_at":   now,
			})
		}
		if err := runWrite(ctx, session, `
UNWIND $rels AS r
MERGE (s:Course {id: r.source})
ON CREATE SET s.placeholder = true
MERGE (d:Course {id: r.destination})
ON CREATE SET d.placeholder = true
MERGE (d)-[e:REQUIRES {kind: r.kind}]->(s)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": rels}); err != nil {
			return st, fmt.Errorf("neo4j course graph sync: edges: %w", err)
		}
		st.Edges += len(rels)
		if len(rows) < syncPageSize {
			break
		}
	}

	if log != nil {
		log.Info("neo4j course graph synced", "courses", st.Courses, "edges", st.Edges)
	}
	return st, nil
}

func runWrite(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) error {
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func courseNode(c *types.Course, syncedAt string) map[string]any {
	meta := ""
	if len(c.Metadata) > 0 {
		meta = string(c.Metadata)
	}
	return map[string]any{
		"id":             c.ID,
		"subject":        c.Subject,
		"number":         c.Number,
		"title":          c.Title,
		"description":    c.Description,
		"credits":        c.Credits,
		"offered_by":     c.OfferedBy,
		"offered_fall":   c.OfferedFall,
		"offered_winter": c.OfferedWinter,
		"offered_summer": c.OfferedSummer,
		"prereq_text":    c.PrereqText,
		"coreq_text":     c.CoreqText,
		"metadata_json":  meta,
		"placeholder":    false,
		"synced_at":      syncedAt,
	}
}
