package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitrateviewer/internal/bitrate"
	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/media/model"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func growingAnalysis(path string, n int) *analysis {
	packets := make([]bitrate.Packet, n)
	for i := range packets {
		packets[i] = bitrate.Packet{PTS: float64(i), Duration: 1, Size: 125000}
	}
	return &analysis{
		Path:      path,
		Container: &model.Container{},
		Series:    bitrate.NewSeries(packets),
	}
}

func TestFileWatcherRefreshesAfterWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encode.mkv")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	var (
		calls atomic.Int32
		first atomic.Pointer[bitrate.Series]
	)
	out := &lockedBuffer{}
	w := &fileWatcher{
		path:     path,
		settle:   50 * time.Millisecond,
		out:      out,
		interval: 1,
		analyze: func(context.Context) (*analysis, error) {
			n := calls.Add(1)
			a := growingAnalysis(path, int(n))
			first.CompareAndSwap(nil, a.Series)
			return a, nil
		},
		logger: logging.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	waitFor(t, "initial refresh", func() bool { return strings.Contains(out.String(), "packets=1 ") })
	if !strings.Contains(out.String(), "encode.mkv") || !strings.Contains(out.String(), "average=1,000 kb/s") {
		t.Fatalf("unexpected initial line %q", out.String())
	}

	if err := os.WriteFile(filepath.Join(dir, "other.log"), []byte("noise"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("unrelated file triggered %d probes", got)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open media: %v", err)
	}
	if _, err := f.WriteString("more"); err != nil {
		t.Fatalf("append media: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close media: %v", err)
	}

	waitFor(t, "refresh after write", func() bool { return strings.Contains(out.String(), "packets=2 ") })
	series := first.Load()
	if series.Len() < 2 {
		t.Fatalf("expected the original series to receive the new packets, got %d", series.Len())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestFileWatcherInitialProbeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encode.mkv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	boom := errors.New("no video stream")
	w := &fileWatcher{
		path:     path,
		settle:   50 * time.Millisecond,
		out:      &lockedBuffer{},
		interval: 1,
		analyze: func(context.Context) (*analysis, error) {
			return nil, boom
		},
		logger: logging.NewNop(),
	}
	if err := w.run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected initial probe error, got %v", err)
	}
}
