package qdrant

import (
	"fmt"
	"sort"
)

const (
	filterOpEq = "$eq"
	filterOpNe = "$ne"
	filterOpIn = "$in"
)

type translatedFilter struct {
	Must    []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

// translateFilterMap handles the metadata filters course retrieval needs:
// {"subject": "COMP"}, {"subject": {"$in": [...]}}, {"$eq"|"$ne": v}.
// Keys are visited in sorted order so the request body is stable.
func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" || key[0] == '$' {
			return out, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported top-level operator %q", key), nil)
		}
		switch v := filter[key].(type) {
		case map[string]any:
			if len(v) != 1 {
				return out, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("filter on %q must have exactly one operator", key), nil)
			}
			for op, arg := range v {
				switch op {
				case filterOpEq:
					cond, err := matchValue(key, arg)
					if err != nil {
						return out, err
					}
					out.Must = append(out.Must, cond)
				case filterOpNe:
					cond, err := matchValue(key, arg)
					if err != nil {
						return out, err
					}
					out.MustNot = append(out.MustNot, cond)
				case filterOpIn:
					values, ok := arg.([]any)
					if !ok || len(values) == 0 {
						return out, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("$in on %q needs a non-empty list", key), nil)
					}
					out.Must = append(out.Must, map[string]any{"key": key, "match": map[string]any{"any": values}})
				default:
					return out, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported operator %q on %q", op, key), nil)
				}
			}
		default:
			cond, err := matchValue(key, v)
			if err != nil {
				return out, err
			}
			out.Must = append(out.Must, cond)
		}
	}
	return out, nil
}

func matchValue(key string, v any) (map[string]any, error) {
	switch v.(type) {
	case string, bool, int, int32, int64, float64:
		return qdrantMatchCondition(key, v), nil
	default:
		return nil, opErr("filter", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported value type %T on %q", v, key), nil)
	}
}

func qdrantMatchCondition(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}
