package bitrate

import (
	"math"
	"sync"
)

// Series holds the packets of one video stream and caches the per-packet
// bitrates derived from them. The cache is rebuilt when the series is dirty
// (packets were appended or Invalidate was called) or when a call asks for a
// different interval length or start. A Series is safe for concurrent use.
type Series struct {
	mu sync.Mutex

	packets []Packet

	dirty     bool
	length    float64
	origin    float64
	bitrates  []float64
	intervals []Interval
}

// NewSeries copies packets into a new dirty Series.
func NewSeries(packets []Packet) *Series {
	return &Series{
		packets: append([]Packet(nil), packets...),
		dirty:   true,
	}
}

// Append adds packets and marks the cache dirty.
func (s *Series) Append(packets ...Packet) {
	if len(packets) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, packets...)
	s.dirty = true
}

// Reset replaces all packets and marks the cache dirty.
func (s *Series) Reset(packets []Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets[:0], packets...)
	s.dirty = true
}

// Invalidate forces the next query to recompute.
func (s *Series) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Dirty reports whether the next query will recompute.
func (s *Series) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Len returns the number of packets.
func (s *Series) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

// Packets returns a copy of the packets.
func (s *Series) Packets() []Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Packet(nil), s.packets...)
}

// Bitrates returns a copy of the per-packet bitrates for the given interval
// parameters.
func (s *Series) Bitrates(interval, start float64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(interval, start)
	return append([]float64(nil), s.bitrates...)
}

// Intervals returns a copy of the interval bitrates.
func (s *Series) Intervals(interval, start float64) []Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(interval, start)
	return append([]Interval(nil), s.intervals...)
}

// Max returns the highest interval bitrate, or NaN when the series is empty.
func (s *Series) Max(interval, start float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh(interval, start)
	return maxOf(s.intervals)
}

// Average returns the average bitrate; see Average.
func (s *Series) Average(startAdjust float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Average(s.packets, startAdjust)
}

func (s *Series) refresh(interval, start float64) {
	interval = normalizeInterval(interval)
	if !s.dirty && s.length == interval && sameFloat(s.origin, start) {
		return
	}
	s.bitrates, s.intervals = aggregate(s.packets, interval, start)
	s.length = interval
	s.origin = start
	s.dirty = false
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
