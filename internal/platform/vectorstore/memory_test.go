package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory(3)
	err := m.Upsert(context.Background(), "courses", []Vector{
		{ID: "COMP-250", Values: []float32{1, 0, 0}, Metadata: map[string]any{"subject": "COMP"}},
		{ID: "COMP-251", Values: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"subject": "COMP"}},
		{ID: "MATH-240", Values: []float32{0, 1, 0}, Metadata: map[string]any{"subject": "MATH"}},
		{ID: "ECSE-250", Values: []float32{1, 0, 0}, Metadata: map[string]any{"subject": "ECSE"}},
	})
	require.NoError(t, err)
	return m
}

func TestMemoryQueryOrderingAndTies(t *testing.T) {
	m := seedMemory(t)
	got, err := m.QueryMatches(context.Background(), "courses", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// equal scores fall back to id order
	assert.Equal(t, "COMP-250", got[0].ID)
	assert.Equal(t, "ECSE-250", got[1].ID)
	assert.Equal(t, "COMP-251", got[2].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	again, err := m.QueryMatches(context.Background(), "courses", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestMemoryFilterAndNamespaces(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	got, err := m.QueryMatches(ctx, "courses", []float32{1, 0, 0}, 10, map[string]any{"subject": "MATH"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MATH-240", got[0].ID)

	got, err = m.QueryMatches(ctx, "courses", []float32{1, 0, 0}, 10, map[string]any{"subject": map[string]any{"$in": []any{"ECSE", "MATH"}}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.QueryMatches(ctx, "other", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryValidationAndDelete(t *testing.T) {
	m := seedMemory(t)
	ctx := context.Background()

	require.Error(t, m.Upsert(ctx, "courses", []Vector{{ID: "X-100", Values: []float32{1}}}))
	require.Error(t, m.Upsert(ctx, "courses", []Vector{{ID: " ", Values: []float32{1, 2, 3}}}))
	_, err := m.QueryMatches(ctx, "courses", nil, 3, nil)
	require.Error(t, err)

	require.NoError(t, m.DeleteIDs(ctx, "courses", []string{"COMP-250", "missing"}))
	assert.Equal(t, 3, m.Len("courses"))
}
