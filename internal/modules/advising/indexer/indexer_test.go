package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repos "github.com/yungbote/coursebridge-backend/internal/data/repos/catalog"
	"github.com/yungbote/coursebridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/vectorstore"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type countingEmbedder struct {
	batches [][]string
	err     error
}

func (c *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.batches = append(c.batches, inputs)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), 1}
	}
	return out, nil
}

func seeded(t *testing.T) repos.CourseRepo {
	t.Helper()
	db := testutil.DB(t)
	c := testutil.Course("COMP-250", "Introduction to Computer Science")
	c.PrereqText = "COMP 202"
	testutil.SeedCourses(t, db,
		c,
		testutil.Course("COMP-206", "Introduction to Software Systems"),
		testutil.Course("MATH-140", "Calculus 1"),
		testutil.Course("MATH-141", "Calculus 2"),
		testutil.Course("MATH-222", "Calculus 3"),
	)
	return repos.NewCourseRepo(db, testutil.Logger(t))
}

func TestDocument(t *testing.T) {
	c := &types.Course{ID: "COMP-273", Title: "Computer Systems", Description: "Machine level.", PrereqText: "COMP 206", CoreqText: "MATH 240"}
	doc := Document(c)
	assert.Equal(t, "COMP-273 Computer Systems\nMachine level.\nPrerequisites: COMP 206\nCorequisites: MATH 240", doc)
	assert.Equal(t, "", Document(nil))
}

func TestReindexPagesThroughCatalogue(t *testing.T) {
	emb := &countingEmbedder{}
	idx := vectorstore.NewMemory(2)
	ix := New(seeded(t), emb, idx, testutil.Logger(t))

	st, err := ix.Reindex(context.Background(), Options{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, st.Courses)
	assert.Equal(t, 5, st.Indexed)
	assert.Equal(t, 3, st.Batches)
	assert.Equal(t, 5, idx.Len("courses"))
	require.Len(t, emb.batches, 3)
	assert.True(t, strings.HasPrefix(emb.batches[0][0], "COMP-206"))
}

func TestReindexSubjectOnly(t *testing.T) {
	emb := &countingEmbedder{}
	idx := vectorstore.NewMemory(2)
	ix := New(seeded(t), emb, idx, testutil.Logger(t))

	st, err := ix.Reindex(context.Background(), Options{Subject: "math", Namespace: "catalog"})
	require.NoError(t, err)
	assert.Equal(t, 3, st.Indexed)
	assert.Equal(t, 3, idx.Len("catalog"))
	assert.Equal(t, 0, idx.Len("courses"))
}

func TestReindexStopsOnEmbedError(t *testing.T) {
	ix := New(seeded(t), &countingEmbedder{err: errors.New("quota")}, vectorstore.NewMemory(2), testutil.Logger(t))
	_, err := ix.Reindex(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}
