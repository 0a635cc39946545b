package logging

import (
	"math"
	"sync"
	"testing"
)

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -5} {
		if got := NewProgressSampler(size).bucketSize; got != 10 {
			t.Fatalf("NewProgressSampler(%v).bucketSize = %v, want 10", size, got)
		}
	}
	if got := NewProgressSampler(25).bucketSize; got != 25 {
		t.Fatalf("bucketSize = %v, want 25", got)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{4, false},
		{10, true},
		{19.9, false},
		{20, true},
		{100, true},
		{130, false},
		{math.NaN(), false},
	}
	for _, step := range steps {
		if got := s.ShouldLog("movie.mkv", step.percent); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerTracksFilesSeparately(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog("first.mkv", 50)
	if !s.ShouldLog("second.mkv", 10) {
		t.Fatal("first call for a new file should log")
	}
	if s.ShouldLog("first.mkv", 55) {
		t.Fatal("same bucket for the first file should not log")
	}
	s.Forget("first.mkv")
	if !s.ShouldLog("first.mkv", 55) {
		t.Fatal("should log again after Forget")
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("a.mkv", 50) {
		t.Fatal("nil sampler should always log")
	}
	s.Forget("a.mkv")
}

func TestProgressSamplerConcurrentFiles(t *testing.T) {
	s := NewProgressSampler(10)
	var wg sync.WaitGroup
	counts := make([]int, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file := string(rune('a'+i)) + ".mkv"
			for p := 0; p <= 100; p++ {
				if s.ShouldLog(file, float64(p)) {
					counts[i]++
				}
			}
		}(i)
	}
	wg.Wait()
	for i, n := range counts {
		if n != 11 {
			t.Fatalf("file %d logged %d times, want 11", i, n)
		}
	}
}
