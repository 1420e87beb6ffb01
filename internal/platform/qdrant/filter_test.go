package qdrant

import (
	"errors"
	"testing"
)

func TestTranslateFilterMap(t *testing.T) {
	got, err := translateFilterMap(map[string]any{
		"subject": "COMP",
		"level":   map[string]any{"$ne": "100"},
		"term":    map[string]any{"$eq": "fall"},
	})
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	if len(got.Must) != 2 || len(got.MustNot) != 1 {
		t.Fatalf("must=%d must_not=%d", len(got.Must), len(got.MustNot))
	}
	// sorted keys: level, subject, term
	if got.Must[0].(map[string]any)["key"] != "subject" {
		t.Fatalf("unexpected order: %v", got.Must)
	}
}

func TestTranslateFilterMapRejects(t *testing.T) {
	bad := []map[string]any{
		{"$or": []any{}},
		{"subject": map[string]any{"$in": []any{}}},
		{"subject": map[string]any{"$eq": "a", "$ne": "b"}},
		{"subject": []string{"COMP"}},
	}
	for i, f := range bad {
		_, err := translateFilterMap(f)
		var oe *OperationError
		if !errors.As(err, &oe) || oe.Code != OperationErrorUnsupportedFilter {
			t.Fatalf("case %d: expected unsupported filter, got=%v", i, err)
		}
	}
}
