package domain

import "time"

// SkipMarker records that a stage was skipped via a script override.
// It is carried alongside the parameter values as a typed variant instead
// of a reserved key inside the generic map, so readiness logic and stage
// executors can match on it directly.
type SkipMarker struct {
	// RequestedAt is when the skip was applied (zero for parsed scripts,
	// set when a skip is materialized).
	RequestedAt time.Time `json:"requested_at,omitempty"`
	// Reason is an optional operator-provided justification.
	Reason string `json:"reason,omitempty"`
}

// StageParameters is the effective parameter set for one stage: the merged
// key/value map plus an optional skip marker.
type StageParameters struct {
	Values map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Skip   *SkipMarker    `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// Skipped reports whether a skip marker is present.
func (p StageParameters) Skipped() bool {
	return p.Skip != nil
}

// Clone value-copies the parameter map so the copy can be mutated in
// isolation.
func (p StageParameters) Clone() StageParameters {
	c := StageParameters{}
	if p.Values != nil {
		c.Values = make(map[string]any, len(p.Values))
		for k, v := range p.Values {
			c.Values[k] = v
		}
	}
	if p.Skip != nil {
		m := *p.Skip
		c.Skip = &m
	}
	return c
}

// Merge returns a copy of p with the override values layered on top.
// Override entries win over existing keys.
func (p StageParameters) Merge(override map[string]any) StageParameters {
	c := p.Clone()
	if len(override) == 0 {
		return c
	}
	if c.Values == nil {
		c.Values = make(map[string]any, len(override))
	}
	for k, v := range override {
		c.Values[k] = v
	}
	return c
}
