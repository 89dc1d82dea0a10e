// SPDX-License-Identifier: MIT
package control

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Event is one scripted control change. Either At or Frame places it on the
// timeline; Frame wins when both are set.
type Event struct {
	At     time.Duration `yaml:"at"`
	Frame  *int64        `yaml:"frame,omitempty"`
	Change `yaml:",inline"`
}

// FrameAt returns the sample frame at which the event fires.
func (e Event) FrameAt(sampleRate float64) int64 {
	if e.Frame != nil {
		return *e.Frame
	}
	return int64(math.Round(e.At.Seconds() * sampleRate))
}

// Script is a control timeline used by offline renders.
type Script struct {
	Initial Params  `yaml:"initial"`
	Events  []Event `yaml:"events"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse control script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid control script: %w", err)
	}
	return &s, nil
}

// LoadScript reads and decodes a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read control script: %w", err)
	}
	return ParseScript(data)
}

// Validate rejects events placed before the start of the render.
func (s *Script) Validate() error {
	for i, e := range s.Events {
		if e.At < 0 || (e.Frame != nil && *e.Frame < 0) {
			return fmt.Errorf("event %d is placed before the start", i)
		}
	}
	return nil
}

// Cursor walks a script in frame order.
type Cursor struct {
	events []Event
	frames []int64
	next   int
	params Params
}

// Cursor returns a cursor positioned before the first event.
func (s *Script) Cursor(sampleRate float64) *Cursor {
	events := slices.Clone(s.Events)
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.FrameAt(sampleRate), b.FrameAt(sampleRate))
	})

	frames := make([]int64, len(events))
	for i, e := range events {
		frames[i] = e.FrameAt(sampleRate)
	}

	return &Cursor{
		events: events,
		frames: frames,
		params: s.Initial.Normalize(),
	}
}

// Advance applies every event due at or before frame and returns the
// resulting params.
func (c *Cursor) Advance(frame int64) Params {
	for c.next < len(c.events) && c.frames[c.next] <= frame {
		c.events[c.next].Apply(&c.params)
		c.params = c.params.Normalize()
		c.next++
	}
	return c.params
}

// NextFrame returns the frame of the next pending event and false when the
// script is exhausted.
func (c *Cursor) NextFrame() (int64, bool) {
	if c.next >= len(c.frames) {
		return 0, false
	}
	return c.frames[c.next], true
}
