package graph

import "slices"

// Strategy decides how an incoming attribute treats a value already on the node
type Strategy int

const (
	// Coalesce keeps the existing value and only fills attributes that are absent
	Coalesce Strategy = iota
	// Overwrite replaces the existing value
	Overwrite
)

func (s Strategy) String() string {
	if s == Overwrite {
		return "overwrite"
	}
	return "coalesce"
}

// engineAttributes are maintained by the engine and never taken from an attribute bag
var engineAttributes = []string{"entity_type", "canonical_text", "record_id", "source", "created_at", "updated_at"}

// MergePolicy assigns a strategy per attribute; unlisted attributes use Default.
type MergePolicy struct {
	Default Strategy
	Fields  map[string]Strategy
}

// Strategy returns the strategy for one attribute
func (p MergePolicy) Strategy(attr string) Strategy {
	if s, ok := p.Fields[attr]; ok {
		return s
	}
	return p.Default
}

// Split partitions attributes into the fill map (coalesced) and the overwrite map.
// Nil values and empty strings are dropped so they never clear or block a value.
func (p MergePolicy) Split(attrs map[string]any) (fill, overwrite map[string]any) {
	fill = map[string]any{}
	overwrite = map[string]any{}
	for k, v := range attrs {
		if v == nil || slices.Contains(engineAttributes, k) {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if p.Strategy(k) == Overwrite {
			overwrite[k] = v
		} else {
			fill[k] = v
		}
	}
	return fill, overwrite
}

// RecordPolicy overwrites the description on every observation
var RecordPolicy = MergePolicy{
	Default: Coalesce,
	Fields:  map[string]Strategy{"description": Overwrite},
}

// EntityPolicy keeps the first value seen for every attribute
var EntityPolicy = MergePolicy{Default: Coalesce}
