package probecache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bitrateviewer/internal/media/ffprobe"
	"bitrateviewer/internal/probecache"
)

func openCache(t *testing.T) *probecache.Cache {
	t.Helper()
	cache, err := probecache.Open(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func mediaKey(t *testing.T, content string) (string, probecache.Key) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mkv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	key, err := probecache.KeyFor(path)
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	return path, key
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestMetadataRoundTrip(t *testing.T) {
	cache := openCache(t)
	_, key := mediaKey(t, "data")
	ctx := context.Background()

	if _, ok, err := cache.LoadMetadata(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	doc := []byte(`{"streams":[],"format":{"duration":"1.0"}}`)
	if err := cache.SaveMetadata(ctx, key, doc); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	got, ok, err := cache.LoadMetadata(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != string(doc) {
		t.Fatalf("unexpected metadata %s", got)
	}
}

func TestPacketsRoundTripPreservesOrderAndNulls(t *testing.T) {
	cache := openCache(t)
	_, key := mediaKey(t, "data")
	ctx := context.Background()

	packets := []ffprobe.Packet{
		{PTSTime: f64(0.083), DTSTime: f64(0.0), DurationTime: f64(0.041), Size: i64(900), Flags: "K_"},
		{PTSTime: nil, DTSTime: f64(0.041), DurationTime: f64(0.041), Size: i64(120), Flags: "__"},
		{PTSTime: f64(0.041), DTSTime: f64(0.083), DurationTime: nil, Size: nil},
	}
	if err := cache.SavePackets(ctx, key, 0, packets); err != nil {
		t.Fatalf("SavePackets failed: %v", err)
	}
	got, ok, err := cache.LoadPackets(ctx, key, 0)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 packets, got %d", len(got))
	}
	if *got[0].Size != 900 || got[0].Flags != "K_" {
		t.Fatalf("unexpected first packet %+v", got[0])
	}
	if got[1].PTSTime != nil {
		t.Fatal("expected nil pts to survive the round trip")
	}
	if got[2].DurationTime != nil || got[2].Size != nil {
		t.Fatal("expected nil duration and size to survive the round trip")
	}

	if _, ok, err := cache.LoadPackets(ctx, key, 1); err != nil || ok {
		t.Fatalf("expected miss for another stream, got ok=%v err=%v", ok, err)
	}
}

func TestEmptyPacketSetIsAHit(t *testing.T) {
	cache := openCache(t)
	_, key := mediaKey(t, "data")
	ctx := context.Background()
	if err := cache.SavePackets(ctx, key, 0, nil); err != nil {
		t.Fatalf("SavePackets failed: %v", err)
	}
	got, ok, err := cache.LoadPackets(ctx, key, 0)
	if err != nil || !ok || len(got) != 0 {
		t.Fatalf("expected empty hit, got %d packets ok=%v err=%v", len(got), ok, err)
	}
}

func TestChangedFileInvalidatesEntry(t *testing.T) {
	cache := openCache(t)
	path, key := mediaKey(t, "data")
	ctx := context.Background()

	if err := cache.SaveMetadata(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	if err := cache.SavePackets(ctx, key, 0, []ffprobe.Packet{{Size: i64(1)}}); err != nil {
		t.Fatalf("SavePackets failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("more data"), 0o644); err != nil {
		t.Fatalf("rewrite media: %v", err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	newKey, err := probecache.KeyFor(path)
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	if _, ok, _ := cache.LoadMetadata(ctx, newKey); ok {
		t.Fatal("expected metadata miss after file change")
	}
	if _, ok, _ := cache.LoadPackets(ctx, newKey, 0); ok {
		t.Fatal("expected packet miss after file change")
	}

	if err := cache.SaveMetadata(ctx, newKey, []byte(`{"format":{}}`)); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	files, packets, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if files != 1 || packets != 0 {
		t.Fatalf("expected stale packets to be dropped, got files=%d packets=%d", files, packets)
	}
}

func TestClear(t *testing.T) {
	cache := openCache(t)
	_, key := mediaKey(t, "data")
	ctx := context.Background()
	if err := cache.SavePackets(ctx, key, 0, []ffprobe.Packet{{Size: i64(1)}, {Size: i64(2)}}); err != nil {
		t.Fatalf("SavePackets failed: %v", err)
	}
	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	files, packets, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if files != 0 || packets != 0 {
		t.Fatalf("expected empty cache, got files=%d packets=%d", files, packets)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	_, key := mediaKey(t, "data")
	ctx := context.Background()

	first, err := probecache.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.SaveMetadata(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := probecache.Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if _, ok, err := second.LoadMetadata(ctx, key); err != nil || !ok {
		t.Fatalf("expected hit after reopen, got ok=%v err=%v", ok, err)
	}
	if filepath.Base(second.Path()) != probecache.DatabaseName {
		t.Fatalf("unexpected database path %s", second.Path())
	}
}

func TestKeyForRejectsDirectory(t *testing.T) {
	if _, err := probecache.KeyFor(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}
