// Package automerge implements the field-level auto-merge engine: a fixed
// strategy table applied per syncable field, folding concurrent remote
// payloads into a single merged value and flagging true conflicts for
// pkg/conflictstore.
//
// The table is a tagged enum dispatched through a switch, deliberately not
// an interface-per-strategy hierarchy: the strategy set is closed and small
// enough that a switch stays more readable than a registry of types.
package automerge

import (
	"sort"
	"time"
)

// Strategy names one of the fixed merge behaviors.
type Strategy string

const (
	StrategyConflict         Strategy = "conflict"
	StrategyLatestWins       Strategy = "latest_wins"
	StrategyUnion            Strategy = "union"
	StrategyMergeMemberships Strategy = "merge_memberships"
	StrategyMax              Strategy = "max"
	StrategyMin              Strategy = "min"
	StrategyAverage          Strategy = "average"
	StrategySum              Strategy = "sum"
	StrategyMaxTimestamp     Strategy = "max_timestamp"
)

// DefaultFieldStrategies binds each of the closed set of 13 syncable
// fields (pkg/changeset.IsSyncableField) to its merge strategy.
func DefaultFieldStrategies() map[string]Strategy {
	return map[string]Strategy{
		"content.title":                    StrategyLatestWins,
		"content.body":                     StrategyConflict,
		"content.summary":                  StrategyLatestWins,
		"organization.tags":                StrategyUnion,
		"organization.cluster_memberships": StrategyMergeMemberships,
		"neural.stability":                 StrategyMax,
		"neural.retrievability":            StrategyMax,
		"neural.importance":                StrategyMax,
		"neural.difficulty":                StrategyAverage,
		"temporal.access_count":            StrategySum,
		"temporal.last_accessed":           StrategyMaxTimestamp,
		"state.lifecycle":                  StrategyLatestWins,
		"state.flags":                      StrategyUnion,
	}
}

// FieldInput is everything a single field's strategy needs to produce a
// merged value: the common-ancestor base (for delta-based strategies),
// and the two sides being folded together with their modification
// timestamps and contributing device, for tie-breaking and conflict
// reporting.
type FieldInput struct {
	Field string

	Base        any
	BasePresent bool

	LocalValue     any
	LocalTimestamp time.Time
	LocalDevice    string

	RemoteValue     any
	RemoteTimestamp time.Time
	RemoteDevice    string
}

// FieldConflict is emitted when a field's strategy cannot resolve the two
// sides automatically.
type FieldConflict struct {
	Field        string
	LocalValue   any
	RemoteValue  any
	LocalTime    time.Time
	RemoteTime   time.Time
	LocalDevice  string
	RemoteDevice string
}

// FieldResult is a single field's merge outcome.
type FieldResult struct {
	Value    any
	Conflict *FieldConflict
}

// Engine applies the strategy table. It holds no mutable state beyond its
// field→strategy bindings, so independent Engine values may be used
// concurrently without sharing state.
type Engine struct {
	Strategies map[string]Strategy
}

// NewEngine returns an Engine bound to the default field/strategy table.
func NewEngine() *Engine {
	return &Engine{Strategies: DefaultFieldStrategies()}
}

func (e *Engine) strategyFor(field string) Strategy {
	if s, ok := e.Strategies[field]; ok {
		return s
	}
	return StrategyConflict
}

// MergeField applies the bound strategy for in.Field to the two sides.
func (e *Engine) MergeField(in FieldInput) (FieldResult, error) {
	switch e.strategyFor(in.Field) {
	case StrategyConflict:
		return mergeConflict(in), nil
	case StrategyLatestWins:
		return mergeLatestWins(in), nil
	case StrategyUnion:
		return mergeUnion(in), nil
	case StrategyMergeMemberships:
		return mergeMemberships(in), nil
	case StrategyMax:
		return mergeMinMax(in, true)
	case StrategyMin:
		return mergeMinMax(in, false)
	case StrategyAverage:
		return mergeAverage(in)
	case StrategySum:
		return mergeSum(in)
	case StrategyMaxTimestamp:
		return mergeMaxTimestamp(in)
	default:
		return mergeConflict(in), nil
	}
}

func mergeConflict(in FieldInput) FieldResult {
	if valuesEqual(in.LocalValue, in.RemoteValue) {
		return FieldResult{Value: in.LocalValue}
	}
	return FieldResult{
		Value: in.LocalValue,
		Conflict: &FieldConflict{
			Field:        in.Field,
			LocalValue:   in.LocalValue,
			RemoteValue:  in.RemoteValue,
			LocalTime:    in.LocalTimestamp,
			RemoteTime:   in.RemoteTimestamp,
			LocalDevice:  in.LocalDevice,
			RemoteDevice: in.RemoteDevice,
		},
	}
}

func mergeLatestWins(in FieldInput) FieldResult {
	if valuesEqual(in.LocalValue, in.RemoteValue) {
		return FieldResult{Value: in.LocalValue}
	}
	if in.RemoteTimestamp.After(in.LocalTimestamp) {
		return FieldResult{Value: in.RemoteValue}
	}
	if in.LocalTimestamp.After(in.RemoteTimestamp) {
		return FieldResult{Value: in.LocalValue}
	}
	// Deterministic tie-break per the Open Question resolution: lower
	// device-id wins ties.
	if in.RemoteDevice < in.LocalDevice {
		return FieldResult{Value: in.RemoteValue}
	}
	return FieldResult{Value: in.LocalValue}
}

func mergeUnion(in FieldInput) FieldResult {
	set := map[string]struct{}{}
	for _, v := range toStringSlice(in.LocalValue) {
		set[v] = struct{}{}
	}
	for _, v := range toStringSlice(in.RemoteValue) {
		set[v] = struct{}{}
	}
	return FieldResult{Value: sortedKeys(set)}
}

// ClusterMembership is one entry of organization.cluster_memberships: a
// node's strength of association with a cluster, plus whether the user
// pinned it there.
type ClusterMembership struct {
	ClusterID string  `json:"cluster_id"`
	Strength  float64 `json:"strength"`
	Pinned    bool    `json:"pinned"`
}

// mergeMemberships merges two sides keyed by cluster_id: clusters present
// on only one side pass through unchanged, and overlapping clusters take
// the max strength and the logical OR of pinned.
func mergeMemberships(in FieldInput) FieldResult {
	local := toMemberships(in.LocalValue)
	remote := toMemberships(in.RemoteValue)

	merged := make(map[string]ClusterMembership, len(local)+len(remote))
	for _, m := range local {
		merged[m.ClusterID] = m
	}
	for _, m := range remote {
		if existing, ok := merged[m.ClusterID]; ok {
			merged[m.ClusterID] = ClusterMembership{
				ClusterID: m.ClusterID,
				Strength:  max(existing.Strength, m.Strength),
				Pinned:    existing.Pinned || m.Pinned,
			}
		} else {
			merged[m.ClusterID] = m
		}
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ClusterMembership, len(ids))
	for i, id := range ids {
		out[i] = merged[id]
	}
	return FieldResult{Value: out}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// toMemberships accepts either a decoded []ClusterMembership or the
// []any-of-map shape json.Unmarshal produces into an interface{} field.
func toMemberships(v any) []ClusterMembership {
	switch t := v.(type) {
	case []ClusterMembership:
		return t
	case []any:
		out := make([]ClusterMembership, 0, len(t))
		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			cm := ClusterMembership{}
			if id, ok := m["cluster_id"].(string); ok {
				cm.ClusterID = id
			}
			if s, ok := toFloat(m["strength"]); ok {
				cm.Strength = s
			}
			if p, ok := m["pinned"].(bool); ok {
				cm.Pinned = p
			}
			out = append(out, cm)
		}
		return out
	default:
		return nil
	}
}

func mergeMinMax(in FieldInput, wantMax bool) (FieldResult, error) {
	lv, ok1 := toFloat(in.LocalValue)
	rv, ok2 := toFloat(in.RemoteValue)
	if !ok1 || !ok2 {
		return FieldResult{}, typeMismatch(in.Field)
	}
	if wantMax {
		if lv >= rv {
			return FieldResult{Value: in.LocalValue}, nil
		}
		return FieldResult{Value: in.RemoteValue}, nil
	}
	if lv <= rv {
		return FieldResult{Value: in.LocalValue}, nil
	}
	return FieldResult{Value: in.RemoteValue}, nil
}

func mergeAverage(in FieldInput) (FieldResult, error) {
	lv, ok1 := toFloat(in.LocalValue)
	rv, ok2 := toFloat(in.RemoteValue)
	if !ok1 || !ok2 {
		return FieldResult{}, typeMismatch(in.Field)
	}
	return FieldResult{Value: (lv + rv) / 2}, nil
}

// mergeSum is delta-based: each side's change relative to base is summed
// onto base, so two concurrent +1 increments from a base of 10 yield 12,
// not 10/11 depending on fold order.
func mergeSum(in FieldInput) (FieldResult, error) {
	var base float64
	if in.BasePresent {
		b, ok := toFloat(in.Base)
		if !ok {
			return FieldResult{}, typeMismatch(in.Field)
		}
		base = b
	}
	lv, ok1 := toFloat(in.LocalValue)
	rv, ok2 := toFloat(in.RemoteValue)
	if !ok1 || !ok2 {
		return FieldResult{}, typeMismatch(in.Field)
	}
	localDelta := lv - base
	remoteDelta := rv - base
	return FieldResult{Value: base + localDelta + remoteDelta}, nil
}

func mergeMaxTimestamp(in FieldInput) (FieldResult, error) {
	lt, ok1 := toTime(in.LocalValue)
	rt, ok2 := toTime(in.RemoteValue)
	if !ok1 || !ok2 {
		return FieldResult{}, typeMismatch(in.Field)
	}
	if rt.After(lt) {
		return FieldResult{Value: in.RemoteValue}, nil
	}
	return FieldResult{Value: in.LocalValue}, nil
}

func typeMismatch(field string) error {
	return &strategyTypeError{field: field}
}

type strategyTypeError struct{ field string }

func (e *strategyTypeError) Error() string {
	return "value type incompatible with strategy for field: " + e.field
}

func valuesEqual(a, b any) bool {
	return toComparable(a) == toComparable(b)
}

func toComparable(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
