package automerge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictStrategyFlagsDivergence(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:           "content.body",
		LocalValue:      "Local body",
		LocalTimestamp:  time.Now(),
		LocalDevice:     "d1",
		RemoteValue:     "Remote body",
		RemoteTimestamp: time.Now(),
		RemoteDevice:    "d2",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, "content.body", res.Conflict.Field)
}

func TestConflictStrategySameValueNoConflict(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "content.body",
		LocalValue:  "same text",
		RemoteValue: "same text",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Conflict)
	assert.Equal(t, "same text", res.Value)
}

func TestLatestWinsPicksLaterTimestamp(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	res, err := e.MergeField(FieldInput{
		Field:           "content.title",
		LocalValue:      "Title A",
		LocalTimestamp:  now,
		RemoteValue:     "Title B",
		RemoteTimestamp: now.Add(time.Second),
	})
	require.NoError(t, err)
	assert.Equal(t, "Title B", res.Value)
}

func TestLatestWinsTieBreaksOnDeviceID(t *testing.T) {
	e := NewEngine()
	now := time.Now()
	res, err := e.MergeField(FieldInput{
		Field:           "state.lifecycle",
		LocalValue:      "archived",
		LocalTimestamp:  now,
		LocalDevice:     "zzz",
		RemoteValue:     "active",
		RemoteTimestamp: now,
		RemoteDevice:    "aaa",
	})
	require.NoError(t, err)
	assert.Equal(t, "active", res.Value) // "aaa" < "zzz"
}

func TestUnionMergesSets(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "organization.tags",
		LocalValue:  []string{"x", "y"},
		RemoteValue: []string{"y", "z"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, res.Value)
}

func TestUnionMergesFlags(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "state.flags",
		LocalValue:  []string{"starred"},
		RemoteValue: []string{"starred", "archived"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"archived", "starred"}, res.Value)
}

func TestMergeMembershipsOverlappingClusterTakesMaxStrengthAndOrsPinned(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field: "organization.cluster_memberships",
		LocalValue: []any{
			map[string]any{"cluster_id": "c1", "strength": 0.4, "pinned": true},
		},
		RemoteValue: []any{
			map[string]any{"cluster_id": "c1", "strength": 0.9, "pinned": false},
		},
	})
	require.NoError(t, err)
	merged, ok := res.Value.([]ClusterMembership)
	require.True(t, ok)
	require.Len(t, merged, 1)
	assert.Equal(t, "c1", merged[0].ClusterID)
	assert.Equal(t, 0.9, merged[0].Strength)
	assert.True(t, merged[0].Pinned)
}

func TestMergeMembershipsNonOverlappingClustersPassThrough(t *testing.T) {
	res := mergeMemberships(FieldInput{
		LocalValue: []any{
			map[string]any{"cluster_id": "c1", "strength": 0.5, "pinned": false},
		},
		RemoteValue: []any{
			map[string]any{"cluster_id": "c2", "strength": 0.3, "pinned": true},
		},
	})
	merged, ok := res.Value.([]ClusterMembership)
	require.True(t, ok)
	require.Len(t, merged, 2)
	assert.Equal(t, "c1", merged[0].ClusterID)
	assert.Equal(t, "c2", merged[1].ClusterID)
}

func TestMaxStrategyPicksHigher(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "neural.importance",
		LocalValue:  0.2,
		RemoteValue: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Value)
}

func TestMinStrategyPicksLower(t *testing.T) {
	res, err := mergeMinMax(FieldInput{LocalValue: 2, RemoteValue: 5}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Value)
}

func TestAverageStrategyMeansTwoValues(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "neural.difficulty",
		LocalValue:  0.2,
		RemoteValue: 0.6,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.Value)
}

func TestSumStrategyDeltaBased(t *testing.T) {
	e := NewEngine()
	res, err := e.MergeField(FieldInput{
		Field:       "temporal.access_count",
		Base:        10,
		BasePresent: true,
		LocalValue:  11, // local did +1
		RemoteValue: 11, // remote did +1 concurrently
	})
	require.NoError(t, err)
	assert.Equal(t, float64(12), res.Value)
}

func TestSumStrategyNoBaseTreatsZero(t *testing.T) {
	res, err := mergeSum(FieldInput{LocalValue: 3, RemoteValue: 4})
	require.NoError(t, err)
	assert.Equal(t, float64(7), res.Value)
}

func TestMaxTimestampPicksLater(t *testing.T) {
	e := NewEngine()
	earlier := time.Now()
	later := earlier.Add(time.Hour)
	res, err := e.MergeField(FieldInput{
		Field:       "temporal.last_accessed",
		LocalValue:  earlier,
		RemoteValue: later,
	})
	require.NoError(t, err)
	assert.Equal(t, later, res.Value)
}

func TestStrategyTypeMismatchReturnsError(t *testing.T) {
	_, err := mergeMinMax(FieldInput{LocalValue: "not-a-number", RemoteValue: 5}, true)
	require.Error(t, err)
}

func TestMergeAllDeterministicFoldOrder(t *testing.T) {
	e := NewEngine()
	base := map[string]any{}
	local := NodeState{Values: map[string]any{"neural.stability": float64(1)}, DeviceID: "local"}

	t0 := time.Now()
	remotes := []NodeState{
		{Values: map[string]any{"neural.stability": float64(3)}, LastModifiedAtAdjusted: t0, DeviceID: "z-device"},
		{Values: map[string]any{"neural.stability": float64(2)}, LastModifiedAtAdjusted: t0, DeviceID: "a-device"},
	}

	merged1, _, err := e.MergeAll(base, local, remotes)
	require.NoError(t, err)

	// Reverse input order — result must be identical since MergeAll sorts
	// internally by (timestamp, device_id) before folding.
	reversed := []NodeState{remotes[1], remotes[0]}
	merged2, _, err := e.MergeAll(base, local, reversed)
	require.NoError(t, err)

	assert.Equal(t, merged1, merged2)
	assert.Equal(t, float64(3), merged1["neural.stability"]) // max strategy picks highest regardless of fold order
}

func TestMergeHandlesFieldAbsentOnOneSide(t *testing.T) {
	e := NewEngine()
	merged, conflicts, err := e.Merge(
		map[string]any{},
		NodeState{Values: map[string]any{"organization.tags": []string{"x"}}, DeviceID: "d1"},
		NodeState{Values: map[string]any{"neural.importance": 0.4}, DeviceID: "d2"},
	)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, []string{"x"}, merged["organization.tags"])
	assert.Equal(t, 0.4, merged["neural.importance"])
}
