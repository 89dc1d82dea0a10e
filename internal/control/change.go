// SPDX-License-Identifier: MIT
package control

// Change is a partial update of Params. Nil fields keep their value; Trigger
// sets the toggle outright while Toggle flips it. Every resulting flip is
// counted in Params.Edges.
type Change struct {
	Toggle   bool     `json:"toggle,omitempty" yaml:"toggle,omitempty"`
	Trigger  *bool    `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Division *float64 `json:"division,omitempty" yaml:"division,omitempty"`
	Segment  *float64 `json:"segment,omitempty" yaml:"segment,omitempty"`
	Time     *float64 `json:"time,omitempty" yaml:"time,omitempty"`
}

// Empty reports whether c changes nothing.
func (c Change) Empty() bool {
	return !c.Toggle && c.Trigger == nil && c.Division == nil && c.Segment == nil && c.Time == nil
}

// Apply writes c into p. The result is not normalized.
func (c Change) Apply(p *Params) {
	if c.Trigger != nil && *c.Trigger != p.Trigger {
		p.Trigger = *c.Trigger
		p.Edges++
	}
	if c.Toggle {
		p.Trigger = !p.Trigger
		p.Edges++
	}
	if c.Division != nil {
		p.Division = *c.Division
	}
	if c.Segment != nil {
		p.SegmentSelect = *c.Segment
	}
	if c.Time != nil {
		p.TimeManipulation = *c.Time
	}
}

// Apply publishes c on top of the latest params.
func (s *Store) Apply(c Change) Params {
	return s.Update(c.Apply)
}
