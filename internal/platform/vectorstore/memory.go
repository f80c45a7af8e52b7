package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

type memoryEntry struct {
	values   []float32
	norm     float64
	metadata map[string]any
}

// MemoryStore is a brute-force cosine index held in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	spaces    map[string]map[string]memoryEntry
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{dimension: dimension, spaces: map[string]map[string]memoryEntry{}}
}

func (s *MemoryStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	space := s.spaces[namespace]
	if space == nil {
		space = map[string]memoryEntry{}
		s.spaces[namespace] = space
	}
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return fmt.Errorf("vector id is required")
		}
		if s.dimension > 0 && len(v.Values) != s.dimension {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", id, s.dimension, len(v.Values))
		}
		meta := make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			meta[k] = val
		}
		vals := append([]float32(nil), v.Values...)
		space[id] = memoryEntry{values: vals, norm: norm(vals), metadata: meta}
	}
	return nil
}

func (s *MemoryStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if s.dimension > 0 && len(q) != s.dimension {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", s.dimension, len(q))
	}
	conds, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	qn := norm(q)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VectorMatch, 0, len(s.spaces[namespace]))
	for id, e := range s.spaces[namespace] {
		if !Matches(conds, e.metadata) {
			continue
		}
		out = append(out, VectorMatch{ID: id, Score: cosine(q, qn, e.values, e.norm), Metadata: e.metadata})
	}
	sort.SliceStable(out, func(i, j int) bool {
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

func (s *MemoryStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	space := s.spaces[namespace]
	for _, id := range ids {
		delete(space, strings.TrimSpace(id))
	}
	return nil
}

// Len reports how many vectors a namespace holds.
func (s *MemoryStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spaces[namespace])
}

func norm(v []float32) float64 {
	sum := 0.0
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dot := 0.0
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
