// Package indexer writes course documents into the semantic index. It is an
// offline tool; nothing on the question path calls it.
package indexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/semantic"
	"github.com/yungbote/coursebridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

const defaultBatchSize = 64

type Options struct {
	Namespace string
	BatchSize int
	// Subject limits the run to one subject code, e.g. "COMP".
	Subject string
}

type Stats struct {
	Courses  int           `json:"courses"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

type Indexer struct {
	courses  repos.CourseRepo
	embedder semantic.Embedder
	index    vectorstore.VectorStore
	log      *logger.Logger
}

func New(courses repos.CourseRepo, embedder semantic.Embedder, index vectorstore.VectorStore, baseLog *logger.Logger) *Indexer {
	return &Indexer{
		courses:  courses,
		embedder: embedder,
		index:    index,
		log:      baseLog.With("service", "CourseIndexer"),
	}
}

// Document is the text embedded for a course.
func Document(c *types.Course) string {
	if c == nil {
		return ""
	}
	var parts []string
	add := func(label, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if label != "" {
			v = label + ": " + v
		}
		parts = append(parts, v)
	}
	add("", c.ID+" "+c.Title)
	add("", c.Description)
	add("Prerequisites", c.PrereqText)
	add("Corequisites", c.CoreqText)
	return strings.Join(parts, "\n")
}

func Metadata(c *types.Course) map[string]any {
	return map[string]any{
		"title":   c.Title,
		"subject": c.Subject,
	}
}

func (ix *Indexer) Reindex(ctx context.Context, opt Options) (Stats, error) {
	if opt.BatchSize <= 0 {
		opt.BatchSize = defaultBatchSize
	}
	if strings.TrimSpace(opt.Namespace) == "" {
		opt.Namespace = semantic.DefaultConfig().Namespace
	}
	start := time.Now()
	var st Stats
	dbc := dbctx.Context{Ctx: ctx}

	if subject := strings.ToUpper(strings.TrimSpace(opt.Subject)); subject != "" {
		rows, err := ix.courses.GetBySubject(dbc, subject)
		if err != nil {
			return st, fmt.Errorf("load subject %s: %w", subject, err)
		}
		for from := 0; from < len(rows); from += opt.BatchSize {
			to := min(from+opt.BatchSize, len(rows))
			if err := ix.indexBatch(ctx, opt.Namespace, rows[from:to], &st); err != nil {
				return st, err
			}
		}
		st.Duration = time.Since(start)
		ix.log.Info("Reindex finished", "subject", subject, "indexed", st.Indexed, "skipped", st.Skipped)
		return st, nil
	}

	total, err := ix.courses.Count(dbc)
	if err != nil {
		return st, fmt.Errorf("count courses: %w", err)
	}
	ix.log.Info("Reindex started", "courses", total, "namespace", opt.Namespace)

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		rows, err := ix.courses.ListPage(dbc, after, opt.BatchSize)
		if err != nil {
			return st, fmt.Errorf("list courses after %q: %w", after, err)
		}
		if len(rows) == 0 {
			break
		}
		if err := ix.indexBatch(ctx, opt.Namespace, rows, &st); err != nil {
			return st, err
		}
		after = rows[len(rows)-1].ID
		if len(rows) < opt.BatchSize {
			break
		}
	}
	st.Duration = time.Since(start)
	ix.log.Info("Reindex finished", "indexed", st.Indexed, "skipped", st.Skipped, "batches", st.Batches)
	return st, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, namespace string, rows []*types.Course, st *Stats) error {
	docs := make([]string, 0, len(rows))
	kept := make([]*types.Course, 0, len(rows))
	for _, c := range rows {
		st.Courses++
		doc := Document(c)
		if c == nil || c.ID == "" || doc == "" {
			st.Skipped++
			continue
		}
		docs = append(docs, doc)
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil
	}

	vecs, err := ix.embedder.Embed(ctx, docs)
	if err != nil {
		return fmt.Errorf("embed batch starting at %s: %w", kept[0].ID, err)
	}
	if len(vecs) != len(kept) {
		return fmt.Errorf("embed batch starting at %s: got %d vectors for %d documents", kept[0].ID, len(vecs), len(kept))
	}

	vectors := make([]vectorstore.Vector, 0, len(kept))
	for i, c := range kept {
		vectors = append(vectors, vectorstore.Vector{ID: c.ID, Values: vecs[i], Metadata: Metadata(c)})
	}
	if err := ix.index.Upsert(ctx, namespace, vectors); err != nil {
		return fmt.Errorf("upsert batch starting at %s: %w", kept[0].ID, err)
	}
	st.Indexed += len(vectors)
	st.Batches++
	return nil
}
