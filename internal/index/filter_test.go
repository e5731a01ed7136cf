package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilterExprExactMatch(t *testing.T) {
	expr := BuildFilterExpr(map[string]any{"content_type": "book"})
	assert.Equal(t, `metadata["content_type"] == "book"`, expr)
}

func TestBuildFilterExprNumericExact(t *testing.T) {
	expr := BuildFilterExpr(map[string]any{"chunk_index": 3})
	assert.Equal(t, `metadata["chunk_index"] == 3`, expr)
}

func TestBuildFilterExprAnyOf(t *testing.T) {
	expr := BuildFilterExpr(map[string]any{"category": []string{"fiction", "poetry"}})
	assert.Equal(t, `metadata["category"] in ["fiction", "poetry"]`, expr)
}

func TestBuildFilterExprRange(t *testing.T) {
	expr := BuildFilterExpr(map[string]any{
		"year": map[string]any{"gte": 1990, "lt": 2000},
	})
	assert.Equal(t, `metadata["year"] >= 1990 and metadata["year"] < 2000`, expr)
}

func TestBuildFilterExprMultipleKeysSortedOrder(t *testing.T) {
	expr := BuildFilterExpr(map[string]any{
		"b_key": "x",
		"a_key": "y",
	})
	assert.Equal(t, `metadata["a_key"] == "y" and metadata["b_key"] == "x"`, expr)
}

func TestBuildFilterExprSkipsMalformedKeys(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]any
		want    string
	}{
		{
			name: "unknown range operator",
			filters: map[string]any{
				"good": "keep",
				"bad":  map[string]any{"between": 1},
			},
			want: `metadata["good"] == "keep"`,
		},
		{
			name: "unsupported value type",
			filters: map[string]any{
				"good": "keep",
				"bad":  struct{}{},
			},
			want: `metadata["good"] == "keep"`,
		},
		{
			name: "empty any-of list",
			filters: map[string]any{
				"good": "keep",
				"bad":  []any{},
			},
			want: `metadata["good"] == "keep"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilterExpr(tt.filters))
		})
	}
}

func TestBuildFilterExprEmpty(t *testing.T) {
	assert.Empty(t, BuildFilterExpr(nil))
	assert.Empty(t, BuildFilterExpr(map[string]any{}))
}
