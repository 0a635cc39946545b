package bitrate

import "math"

// DefaultInterval is the bucket length used when a non-positive interval is
// requested.
const DefaultInterval = 1.0

// Average returns the total size in bits divided by the time from
// startAdjust to the end of the last packet. It is NaN for an empty input or
// when that span is not a positive finite number.
func Average(packets []Packet, startAdjust float64) float64 {
	if len(packets) == 0 {
		return math.NaN()
	}
	var total int64
	for _, p := range packets {
		total += p.Size
	}
	span := packets[len(packets)-1].End() - startAdjust
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return math.NaN()
	}
	return float64(total) * 8 / span
}

// PerPacket returns, parallel to packets, the bitrate of the interval each
// packet was assigned to. Packets whose time cannot be mapped onto an
// interval are skipped and report 0.
func PerPacket(packets []Packet, interval, start float64) []float64 {
	perPacket, _ := aggregate(packets, interval, start)
	return perPacket
}

// Intervals returns one entry per closed interval in time order. Intervals
// that received no packets and no bytes are omitted.
func Intervals(packets []Packet, interval, start float64) []Interval {
	_, intervals := aggregate(packets, interval, start)
	return intervals
}

// Max returns the highest interval bitrate, or NaN for an empty input.
func Max(packets []Packet, interval, start float64) float64 {
	return maxOf(Intervals(packets, interval, start))
}

func maxOf(intervals []Interval) float64 {
	if len(intervals) == 0 {
		return math.NaN()
	}
	peak := intervals[0].BitsPerSecond
	for _, iv := range intervals[1:] {
		peak = math.Max(peak, iv.BitsPerSecond)
	}
	return peak
}

func normalizeInterval(interval float64) float64 {
	if interval <= 0 || math.IsNaN(interval) || math.IsInf(interval, 0) {
		return DefaultInterval
	}
	return interval
}

func aggregate(packets []Packet, interval, start float64) ([]float64, []Interval) {
	a := newAggregator(len(packets), normalizeInterval(interval), start)
	for i, p := range packets {
		a.add(i, p)
	}
	a.finish()
	return a.perPacket, a.intervals
}

const (
	// maxIndex keeps interval indexes exactly representable as float64.
	maxIndex  = 1 << 53
	// maxSpread bounds how many intervals a single packet may be spread over.
	maxSpread = 1 << 20
)

// aggregator keeps one open interval and walks the packets forward.
type aggregator struct {
	length float64
	origin float64
	index  int64

	acc     int64
	carry   int64
	members []int

	perPacket []float64
	intervals []Interval
}

func newAggregator(n int, length, origin float64) *aggregator {
	return &aggregator{length: length, origin: origin, perPacket: make([]float64, n)}
}

func (a *aggregator) start() float64 {
	return a.origin + float64(a.index)*a.length
}

func (a *aggregator) end() float64 {
	return a.origin + float64(a.index+1)*a.length
}

// indexOf returns the index of the interval containing at, or false when at
// cannot be mapped onto an interval.
func (a *aggregator) indexOf(at float64) (int64, bool) {
	pos := math.Floor((at - a.origin) / a.length)
	if math.IsNaN(pos) || math.IsInf(pos, 0) || math.Abs(pos) >= maxIndex {
		return 0, false
	}
	return int64(pos), true
}

// placeable reports whether p starts and ends on a mappable interval and is
// not absurdly long. Other packets are left out of the aggregation.
func (a *aggregator) placeable(p Packet) bool {
	first, ok := a.indexOf(p.PTS)
	if !ok {
		return false
	}
	last, ok := a.indexOf(p.End())
	return ok && last-first <= maxSpread
}

func (a *aggregator) add(idx int, p Packet) {
	if !a.placeable(p) {
		return
	}
	if p.Duration <= a.length {
		a.addChunk(idx, p.PTS, p.Duration, p.Size)
		return
	}

	// Spread an over-long packet across the intervals it covers. Chunk sizes
	// use cumulative rounding so their sum is exactly p.Size.
	full := int64(math.Floor(p.Duration / a.length))
	residual := p.Duration - float64(full)*a.length
	var assigned int64
	for k := int64(0); k < full; k++ {
		upTo := int64(math.Round(float64(p.Size) * float64(k+1) * a.length / p.Duration))
		size := upTo - assigned
		if k == full-1 && residual <= a.length*1e-9 {
			size = p.Size - assigned
		}
		assigned += size
		a.addChunk(idx, p.PTS+float64(k)*a.length, a.length, size)
	}
	if rest := p.Size - assigned; residual > a.length*1e-9 {
		a.addChunk(idx, p.PTS+float64(full)*a.length, residual, rest)
	}
}

func (a *aggregator) addChunk(idx int, at, duration float64, size int64) {
	for at >= a.end() {
		a.close()
		if a.acc == 0 && at >= a.end() {
			if skip, ok := a.indexOf(at); ok && skip > a.index {
				a.index = skip
			}
		}
	}

	intervalEnd := a.end()
	if at+duration <= intervalEnd || duration <= 0 {
		a.acc += size
	} else {
		current := int64(math.Round(float64(size) * (intervalEnd - at) / duration))
		current = min(max(current, 0), size)
		a.acc += current
		a.carry += size - current
	}
	if n := len(a.members); n == 0 || a.members[n-1] != idx {
		a.members = append(a.members, idx)
	}
}

// close emits the open interval and opens the next one, seeded with the
// bytes carried over from packets that crossed the boundary.
func (a *aggregator) close() {
	if a.acc != 0 || len(a.members) > 0 {
		bps := math.Round(float64(a.acc) / a.length * 8)
		for _, idx := range a.members {
			a.perPacket[idx] = bps
		}
		a.intervals = append(a.intervals, Interval{Start: a.start(), BitsPerSecond: bps, Packets: len(a.members)})
	}
	a.members = a.members[:0]
	a.index++
	a.acc, a.carry = a.carry, 0
}

func (a *aggregator) finish() {
	if len(a.perPacket) == 0 {
		return
	}
	a.close()
	if a.acc > 0 {
		a.close()
	}
}
