package vvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareTotal(t *testing.T) {
	a := Vector{"d1": 3, "d2": 1}
	b := Vector{"d1": 2, "d3": 5}

	// Defined even over disjoint device sets.
	rel := Compare(a, b)
	assert.Equal(t, ConcurrentRel, rel)
}

func TestCompareSymmetry(t *testing.T) {
	a := Vector{"d1": 2}
	b := Vector{"d1": 2, "d2": 1}

	assert.Equal(t, Dominated, Compare(a, b))
	assert.Equal(t, DominatesRel, Compare(b, a))
}

func TestCompareEqual(t *testing.T) {
	a := Vector{"d1": 1, "d2": 2}
	b := Vector{"d1": 1, "d2": 2}
	assert.Equal(t, Equal, Compare(a, b))
	assert.True(t, Dominates2(a, b))
}

func Dominates2(a, b Vector) bool { return Dominates(a, b) && Dominates(b, a) }

func TestMergeCommutative(t *testing.T) {
	a := Vector{"d1": 3, "d2": 1}
	b := Vector{"d1": 2, "d3": 5}

	assert.Equal(t, Merge(a, b), Merge(b, a))
}

func TestMergeAssociative(t *testing.T) {
	a := Vector{"d1": 3}
	b := Vector{"d2": 5}
	c := Vector{"d1": 1, "d3": 2}

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	assert.Equal(t, left, right)
}

func TestMergeIdempotent(t *testing.T) {
	a := Vector{"d1": 3, "d2": 7}
	assert.Equal(t, a, Merge(a, a))
}

func TestIncrementDominates(t *testing.T) {
	a := Vector{"d1": 3}
	b := Increment(a, "d1")
	assert.True(t, Dominates(b, a))
	assert.False(t, Dominates(a, b))
	assert.Equal(t, uint64(4), b["d1"])
	// Original is untouched.
	assert.Equal(t, uint64(3), a["d1"])
}

func TestIncrementNewDevice(t *testing.T) {
	a := Vector{"d1": 3}
	b := Increment(a, "d2")
	assert.Equal(t, uint64(1), b["d2"])
	assert.True(t, Dominates(b, a))
}

func TestInactiveKeyExcludedFromCompare(t *testing.T) {
	a := Vector{"d1": 3, InactiveKey: 1_000_000_000}
	b := Vector{"d1": 3}

	// _inactive is compaction bookkeeping, not causal history; piling it
	// onto either side must not change the relation.
	assert.Equal(t, Equal, Compare(a, b))
}

func TestCompactTriggersAboveMaxActive(t *testing.T) {
	v := make(Vector)
	days := make(map[string]int)
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		v[id] = 1
		days[id] = i
	}

	out := Compact(v, days, DefaultCompactionPolicy())
	require.LessOrEqual(t, out.ActiveDeviceCount(), DefaultCompactionPolicy().MaxActiveDevices)
	assert.Equal(t, Dominated, Compare(out, v), "compaction must not invent dominance")
}

func TestCompactFoldsInactivityThreshold(t *testing.T) {
	v := Vector{"d1": 5, "d2": 2}
	days := map[string]int{"d1": 100, "d2": 1}

	out := Compact(v, days, DefaultCompactionPolicy())
	_, stillPresent := out["d1"]
	assert.False(t, stillPresent)
	assert.Equal(t, uint64(5), out[InactiveKey])
	assert.True(t, Dominates(out, v))
}

func TestCompactPreservesHistory(t *testing.T) {
	v := Vector{"d1": 5, "d2": 2, "d3": 1}
	days := map[string]int{"d1": 200, "d2": 1, "d3": 1}

	compacted := Compact(v, days, DefaultCompactionPolicy())
	// _inactive is excluded from Compare and the folded d1 counts as zero,
	// so the compacted vector never claims history the original lacks.
	assert.False(t, Dominates(compacted, v))
	assert.True(t, Dominates(v, compacted))
}

func TestCloneIndependence(t *testing.T) {
	a := Vector{"d1": 1}
	b := a.Clone()
	b["d1"] = 99
	assert.Equal(t, uint64(1), a["d1"])
}
