package parquet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func identity(v any) any { return v }

func TestAssembleFlat(t *testing.T) {
	f := field{topDL: 1, maxDL: 1}
	got := assemble(
		[]any{int64(1), nil, int64(3)},
		[]int32{0, 0, 0},
		[]int32{1, 0, 1},
		f, identity,
	)
	assert.Equal(t, []any{int64(1), nil, int64(3)}, got)

	required := field{}
	got = assemble([]any{"a", "b"}, []int32{0, 0}, []int32{0, 0}, required, identity)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestAssembleList(t *testing.T) {
	// optional group tags (LIST) { repeated group list { optional binary element } }
	f := field{list: true, topDL: 1, repDL: 2, maxDL: 3}

	// rows: ["a","b"], null, [], [null, "c"]
	values := []any{"a", "b", nil, nil, nil, "c"}
	rls := []int32{0, 1, 0, 0, 0, 1}
	dls := []int32{3, 3, 0, 1, 2, 3}

	got := assemble(values, rls, dls, f, identity)
	assert.Equal(t, []any{
		[]any{"a", "b"},
		nil,
		[]any{},
		[]any{nil, "c"},
	}, got)
}

func TestAssembleLegacyRepeated(t *testing.T) {
	// repeated binary tags
	f := field{list: true, topDL: 0, repDL: 1, maxDL: 1}
	got := assemble(
		[]any{"a", "b", nil},
		[]int32{0, 1, 0},
		[]int32{1, 1, 0},
		f, identity,
	)
	assert.Equal(t, []any{[]any{"a", "b"}, []any{}}, got)
}
