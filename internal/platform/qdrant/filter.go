package qdrant

import (
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

// buildFilter renders the namespace guard plus the caller's conditions as a
// qdrant "must" filter. Multi-valued conditions use match.any.
func buildFilter(namespace string, filter map[string]any) (map[string]any, error) {
	conds, err := vectorstore.ParseFilter(filter)
	if err != nil {
		return nil, opErr("filter_translate", OperationErrorValidation, err.Error(), err)
	}
	must := []any{matchValue(payloadNamespaceKey, namespace)}
	for _, c := range conds {
		if len(c.Values) == 1 {
			must = append(must, matchValue(c.Field, c.Values[0]))
			continue
		}
		must = append(must, map[string]any{
			"key":   c.Field,
			"match": map[string]any{"any": c.Values},
		})
	}
	return map[string]any{"must": must}, nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
