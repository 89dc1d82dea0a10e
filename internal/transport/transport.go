// SPDX-License-Identifier: MIT
//
// Package transport carries looper status out of the process and control
// changes back in. Nothing here runs on the audio goroutine: status is pulled
// from a StatusSource by a Broadcaster and fanned out to Transports.
package transport

import (
	"encoding/json"
	"time"

	"looper/internal/analysis"
	"looper/internal/control"
	"looper/internal/looper"
)

// Transport defines a generic interface for sending status or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// StatusSource provides the latest status snapshot. The audio engine and
// offline renders implement it.
type StatusSource interface {
	Status() Status
}

// Status is the snapshot published to remote surfaces.
type Status struct {
	Time   time.Time
	Looper looper.Status
	Level  analysis.Level
	Bands  analysis.BandLevels
	Params control.Params
}

type statusJSON struct {
	Type           string             `json:"type"`
	Timestamp      int64              `json:"ts"`
	State          string             `json:"state"`
	Mode           string             `json:"mode"`
	Position       float64            `json:"position"`
	RecordedLength float64            `json:"recorded_length"`
	Capacity       int                `json:"capacity"`
	SegmentSize    int                `json:"segment_size"`
	Segments       int                `json:"segments"`
	Segment        int                `json:"segment"`
	WindowStart    float64            `json:"window_start"`
	WindowEnd      float64            `json:"window_end"`
	Reversed       bool               `json:"reversed"`
	Level          analysis.Level     `json:"level"`
	Bands          map[string]float64 `json:"bands"`
	Params         control.Params     `json:"params"`
}

// MarshalJSON encodes the status as a flat "status" message.
func (s Status) MarshalJSON() ([]byte, error) {
	bands := make(map[string]float64, analysis.NumBands)
	for i, b := range analysis.Bands {
		bands[b.Name] = s.Bands[i]
	}
	w := s.Looper.Window
	return json.Marshal(statusJSON{
		Type:           MessageStatus,
		Timestamp:      s.Time.UnixMilli(),
		State:          s.Looper.State.String(),
		Mode:           s.Looper.Mode.String(),
		Position:       s.Looper.Position,
		RecordedLength: s.Looper.RecordedLength,
		Capacity:       s.Looper.Capacity,
		SegmentSize:    s.Looper.SegmentSize,
		Segments:       s.Looper.Segments,
		Segment:        s.Looper.Segment,
		WindowStart:    w.Start,
		WindowEnd:      w.End(float64(max(s.Looper.Capacity, 1))),
		Reversed:       w.Reversed,
		Level:          s.Level,
		Bands:          bands,
		Params:         s.Params,
	})
}

// Message types exchanged over the WebSocket.
const (
	MessageStatus = "status"
	MessageHello  = "hello"
	MessageParams = "params"
	MessageError  = "error"
)

// Hello greets a new WebSocket client with its session id.
type Hello struct {
	Type    string         `json:"type"`
	Session string         `json:"session"`
	Params  control.Params `json:"params"`
}

// ParamsMessage acknowledges a control change with the resulting params.
type ParamsMessage struct {
	Type    string         `json:"type"`
	Session string         `json:"session"`
	Params  control.Params `json:"params"`
}

// ErrorMessage reports a rejected control message.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
