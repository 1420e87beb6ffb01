package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process cosine index for local runs and tests. Filters
// support plain equality and {"$in": [...]} on metadata values.
type Memory struct {
	mu  sync.RWMutex
	dim int
	ns  map[string]map[string]memEntry
}

type memEntry struct {
	values []float32
	norm   float64
	meta   map[string]any
}

// NewMemory returns an empty index. dim <= 0 accepts any dimension but every
// vector in a namespace must match the first one written.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, ns: map[string]map[string]memEntry{}}
}

func (m *Memory) Upsert(_ context.Context, namespace string, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.ns[namespace]
	if bucket == nil {
		bucket = map[string]memEntry{}
		m.ns[namespace] = bucket
	}
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return fmt.Errorf("memory upsert: vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("memory upsert: vector %q has empty values", id)
		}
		if want := m.dimFor(bucket); want > 0 && len(v.Values) != want {
			return fmt.Errorf("memory upsert: vector %q dimension mismatch: expected=%d got=%d", id, want, len(v.Values))
		}
		vals := append([]float32(nil), v.Values...)
		meta := make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			meta[k] = val
		}
		bucket[id] = memEntry{values: vals, norm: l2(vals), meta: meta}
	}
	return nil
}

func (m *Memory) QueryMatches(_ context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("memory query: query vector required")
	}
	if topK <= 0 {
		topK = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.ns[namespace]
	qn := l2(q)
	out := make([]VectorMatch, 0, len(bucket))
	for id, e := range bucket {
		if len(e.values) != len(q) {
			return nil, fmt.Errorf("memory query: dimension mismatch: expected=%d got=%d", len(e.values), len(q))
		}
		if !matchesFilter(e.meta, filter) {
			continue
		}
		out = append(out, VectorMatch{ID: id, Score: cosine(q, qn, e.values, e.norm)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *Memory) DeleteIDs(_ context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket := m.ns[namespace]
	for _, id := range ids {
		delete(bucket, strings.TrimSpace(id))
	}
	return nil
}

// Len reports how many vectors a namespace holds.
func (m *Memory) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ns[namespace])
}

func (m *Memory) dimFor(bucket map[string]memEntry) int {
	if m.dim > 0 {
		return m.dim
	}
	for _, e := range bucket {
		return len(e.values)
	}
	return 0
}

func matchesFilter(meta map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		if cond, isMap := want.(map[string]any); isMap {
			in, _ := cond["$in"].([]any)
			hit := false
			for _, candidate := range in {
				if fmt.Sprint(candidate) == fmt.Sprint(got) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return false
		}
	}
	return true
}

func l2(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
