package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func jsonHandlerAt(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every child is nil")
	}
	var buf bytes.Buffer
	only := jsonHandlerAt(&buf, slog.LevelInfo)
	if h := newFanoutHandler(nil, only, nil); h != only {
		t.Fatalf("expected the single child unwrapped, got %T", h)
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := newFanoutHandler(jsonHandlerAt(&console, slog.LevelInfo), jsonHandlerAt(&file, slog.LevelDebug))
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the debug child")
	}

	logger := slog.New(h)
	logger.Debug("packet cache hit")
	if console.Len() != 0 {
		t.Fatalf("info child received a debug record: %s", console.String())
	}
	if !strings.Contains(file.String(), "packet cache hit") {
		t.Fatalf("debug child missed the record: %s", file.String())
	}

	logger.Info("packets scanned", slog.Int("packets", 4))
	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		if !strings.Contains(buf.String(), `"packets":4`) {
			t.Fatalf("%s output missing attribute: %s", name, buf.String())
		}
	}
}

func TestFanoutHandlerDisabledForAll(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(jsonHandlerAt(&a, slog.LevelWarn), jsonHandlerAt(&b, slog.LevelError))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info to be disabled")
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(jsonHandlerAt(&a, slog.LevelInfo), jsonHandlerAt(&b, slog.LevelInfo))
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldComponent, "ffprobe")}).WithGroup("probe"))
	logger.Info("done", slog.String("stream", "v:0"))

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"component":"ffprobe"`) || !strings.Contains(out, `"probe":{"stream":"v:0"}`) {
			t.Fatalf("unexpected output %s", out)
		}
	}
}

func TestInvocationHandlerTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newInvocationHandler(jsonHandlerAt(&buf, slog.LevelInfo), "run-42")).With("extra", "value")
	logger.Info("probing")

	out := buf.String()
	if !strings.Contains(out, `"invocation_id":"run-42"`) || !strings.Contains(out, `"extra":"value"`) {
		t.Fatalf("unexpected output %s", out)
	}
	if _, ok := newInvocationHandler(nil, "x").(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for a nil base")
	}
}
