// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"looper/internal/looper"
	"looper/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description               |
|-----------------|-----------|--------------|---------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing  |
| Timestamp       | int64     | 8            | Nanoseconds since epoch   |
| State           | uint8     | 1            | 0 listen, 1 rec, 2 play   |
| Mode            | uint8     | 1            | 0 normal .. 3 double      |
| Position        | float64   | 8            | Read/write head, samples  |
| Recorded Length | float64   | 8            | Last pass size, samples   |
| Segment Size    | uint32    | 4            | Samples per segment       |
| Segments        | uint16    | 2            | Number of segments        |
| Segment         | uint16    | 2            | Selected segment index    |
| RMS             | float32   | 4            | Output RMS, linear        |
| Peak            | float32   | 4            | Output peak, linear       |
+------------------------------------------------------------------------+
*/

// PacketSize is the encoded size of a Packet in bytes.
const PacketSize = 46

// Packet is the binary status datagram.
type Packet struct {
	Sequence       uint32
	Timestamp      int64
	State          uint8
	Mode           uint8
	Position       float64
	RecordedLength float64
	SegmentSize    uint32
	Segments       uint16
	Segment        uint16
	RMS            float32
	Peak           float32
}

// NewPacket packs a status snapshot. Counts that do not fit their field
// saturate.
func NewPacket(seq uint32, s transport.Status) Packet {
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return Packet{
		Sequence:       seq,
		Timestamp:      ts.UnixNano(),
		State:          uint8(s.Looper.State),
		Mode:           uint8(s.Looper.Mode),
		Position:       s.Looper.Position,
		RecordedLength: s.Looper.RecordedLength,
		SegmentSize:    uint32(min(max(int64(s.Looper.SegmentSize), 0), math.MaxUint32)),
		Segments:       uint16(min(max(s.Looper.Segments, 0), math.MaxUint16)),
		Segment:        uint16(min(max(s.Looper.Segment, 0), math.MaxUint16)),
		RMS:            float32(s.Level.RMS),
		Peak:           float32(s.Level.Peak),
	}
}

// PlaybackState returns the decoded state.
func (p Packet) PlaybackState() looper.PlaybackState { return looper.PlaybackState(p.State) }

// TimeManipulation returns the decoded mode.
func (p Packet) TimeManipulation() looper.TimeManipulation {
	return looper.TimeManipulation(p.Mode)
}

// MarshalTo writes the big-endian encoding of p into buf, replacing its
// contents.
func (p Packet) MarshalTo(buf *bytes.Buffer) error {
	buf.Reset()
	return binary.Write(buf, binary.BigEndian, p)
}

// UnmarshalPacket decodes a datagram.
func UnmarshalPacket(data []byte) (Packet, error) {
	var p Packet
	if len(data) != PacketSize {
		return p, fmt.Errorf("status packet is %d bytes, want %d", len(data), PacketSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &p); err != nil {
		return p, fmt.Errorf("failed to decode status packet: %w", err)
	}
	return p, nil
}
