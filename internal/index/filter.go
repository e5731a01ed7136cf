package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kart-io/logger"
)

// Range comparison operators accepted in a filter value map.
var rangeOps = map[string]string{
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// BuildFilterExpr converts a metadata filter map into a Milvus filter
// expression over the JSON metadata field. Each key maps to one of:
// exact match (scalar), any-of match (slice), or range (map with
// gt/gte/lt/lte). A malformed value skips that key with a warning
// rather than failing the query; the key simply goes unfiltered.
func BuildFilterExpr(filters map[string]any) string {
	if len(filters) == 0 {
		return ""
	}

	// Deterministic key order keeps expressions stable for tests and
	// for query plan caching.
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	for _, key := range keys {
		clause, ok := buildClause(key, filters[key])
		if !ok {
			logger.Warnw("Skipping unsupported metadata filter",
				"key", key,
				"value_type", fmt.Sprintf("%T", filters[key]),
			)
			continue
		}
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " and ")
}

func buildClause(key string, value any) (string, bool) {
	field := fmt.Sprintf("metadata[%q]", key)

	switch v := value.(type) {
	case map[string]any:
		return buildRangeClause(field, v)
	case []any:
		return buildInClause(field, v)
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return buildInClause(field, items)
	case []int:
		items := make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
		return buildInClause(field, items)
	default:
		lit, ok := literal(value)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s == %s", field, lit), true
	}
}

func buildRangeClause(field string, bounds map[string]any) (string, bool) {
	// Range keys outside gt/gte/lt/lte make the whole map malformed;
	// a partial range would silently change the query's meaning.
	var parts []string
	ops := make([]string, 0, len(bounds))
	for op := range bounds {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		cmp, known := rangeOps[op]
		if !known {
			return "", false
		}
		lit, ok := literal(bounds[op])
		if !ok {
			return "", false
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", field, cmp, lit))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " and "), true
}

func buildInClause(field string, items []any) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	lits := make([]string, len(items))
	for i, item := range items {
		lit, ok := literal(item)
		if !ok {
			return "", false
		}
		lits[i] = lit
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(lits, ", ")), true
}

func literal(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", v), true
	case float32:
		return fmt.Sprintf("%v", v), true
	case float64:
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}
