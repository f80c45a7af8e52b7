package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorStore is the nearest-neighbour index behind the embedding store.
// Filters are flat maps: {"field": value} for equality and
// {"field": {"$in": [...]}} for membership.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns matches ordered by similarity (higher is better).
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}

// Condition is one parsed filter entry.
type Condition struct {
	Field  string
	Values []any
}

// ParseFilter flattens a filter map into sorted conditions. A condition
// matches when the field equals any of its values.
func ParseFilter(filter map[string]any) ([]Condition, error) {
	out := make([]Condition, 0, len(filter))
	for field, raw := range filter {
		field = strings.TrimSpace(field)
		if field == "" || strings.HasPrefix(field, "$") {
			return nil, fmt.Errorf("unsupported filter key %q", field)
		}
		switch v := raw.(type) {
		case map[string]any:
			in, ok := v["$in"]
			if !ok || len(v) != 1 {
				return nil, fmt.Errorf("unsupported operator for %q", field)
			}
			vals, err := toSlice(in)
			if err != nil {
				return nil, fmt.Errorf("filter %q: %w", field, err)
			}
			out = append(out, Condition{Field: field, Values: vals})
		default:
			out = append(out, Condition{Field: field, Values: []any{raw}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Matches reports whether metadata satisfies every condition.
func Matches(conds []Condition, metadata map[string]any) bool {
	for _, c := range conds {
		got, ok := metadata[c.Field]
		if !ok {
			return false
		}
		hit := false
		for _, want := range c.Values {
			if fmt.Sprint(got) == fmt.Sprint(want) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func toSlice(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("$in expects a list, got %T", v)
	}
}

