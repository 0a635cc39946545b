package logging

import (
	"math"
	"sync"
)

// ProgressSampler throttles progress lines to one per percentage bucket per
// file. One sampler may be shared by goroutines scanning different files.
type ProgressSampler struct {
	bucketSize float64

	mu      sync.Mutex
	buckets map[string]int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percent; non-positive widths mean 10.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, buckets: make(map[string]int)}
}

// ShouldLog reports whether percent entered a new bucket for file. The first
// call for a file always logs; NaN never does.
func (s *ProgressSampler) ShouldLog(file string, percent float64) bool {
	if s == nil {
		return true
	}
	if math.IsNaN(percent) {
		return false
	}
	bucket := int(math.Max(0, math.Min(percent, 100)) / s.bucketSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.buckets[file]
	if seen && bucket <= last {
		return false
	}
	s.buckets[file] = bucket
	return true
}

// Forget drops the state kept for file.
func (s *ProgressSampler) Forget(file string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.buckets, file)
	s.mu.Unlock()
}
