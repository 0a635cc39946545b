package bitrate

import "math"

// Packet is the subset of a probed packet the aggregator needs. Times are in
// seconds and Size is in bytes.
type Packet struct {
	PTS      float64 `json:"pts"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Flags    string  `json:"flags,omitempty"`
}

// NewPacket builds a Packet from optional probe values. Missing values become
// zero, as do non-finite times. Negative durations and sizes are clamped.
func NewPacket(pts, duration *float64, size *int64, flags string) Packet {
	p := Packet{Flags: flags}
	if pts != nil && finite(*pts) {
		p.PTS = *pts
	}
	if duration != nil && *duration > 0 && finite(*duration) {
		p.Duration = *duration
	}
	if size != nil && *size > 0 {
		p.Size = *size
	}
	return p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// End returns PTS + Duration.
func (p Packet) End() float64 {
	return p.PTS + p.Duration
}

// Interval is one closed bucket of the aggregation.
type Interval struct {
	Start         float64 `json:"start"`
	BitsPerSecond float64 `json:"bits_per_second"`
	// Packets counts the packets assigned to this interval.
	Packets int `json:"packets"`
}
