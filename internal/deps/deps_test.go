package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"bitrateviewer/internal/media/ffprobe"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestCheckBinariesSearchesPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit check is POSIX only")
	}
	binDir := t.TempDir()
	tool := filepath.Join(binDir, "probe-tool")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "not-exec"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("PATH", binDir)

	results := CheckBinaries([]Requirement{
		{Name: "Tool", Command: "probe-tool"},
		{Name: "Plain file", Command: "not-exec"},
	})
	if !results[0].Available || results[0].Command != tool {
		t.Fatalf("expected PATH lookup to resolve %s, got %#v", tool, results[0])
	}
	if results[1].Available {
		t.Fatalf("expected non-executable file to be unavailable, got %#v", results[1])
	}
}

type stubVersioner struct {
	version ffprobe.Version
	err     error
	calls   int
}

func (s *stubVersioner) Version(context.Context) (ffprobe.Version, error) {
	s.calls++
	return s.version, s.err
}

func TestCheckFFprobe(t *testing.T) {
	ctx := context.Background()
	binary := filepath.Join(t.TempDir(), executableName("ffprobe"))
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	ok := CheckFFprobe(ctx, binary, &stubVersioner{version: ffprobe.Version{Major: 6, Minor: 1, Patch: 1}})
	if !ok.Available || ok.Command != binary || ok.Detail != "version 6.1.1" {
		t.Fatalf("unexpected status %#v", ok)
	}

	versioner := &stubVersioner{}
	missing := CheckFFprobe(ctx, filepath.Join(t.TempDir(), "nope", "ffprobe"), versioner)
	if missing.Available || !strings.Contains(missing.Detail, "install FFmpeg") {
		t.Fatalf("unexpected status for missing binary %#v", missing)
	}
	if versioner.calls != 0 {
		t.Fatal("expected no version call for a missing binary")
	}

	broken := CheckFFprobe(ctx, binary, &stubVersioner{err: errors.New("boom")})
	if broken.Available || !strings.Contains(broken.Detail, "boom") {
		t.Fatalf("unexpected status for failed version %#v", broken)
	}
}

func TestFFprobeRequirementDefault(t *testing.T) {
	if got := FFprobeRequirement("").Command; got != "ffprobe" {
		t.Fatalf("expected default command ffprobe, got %q", got)
	}
}

func TestCheckShell(t *testing.T) {
	found := checkShell("linux", func(name string) (string, bool) {
		return "/bin/" + name, true
	})
	if !found.Available || found.Command != "/bin/sh" {
		t.Fatalf("unexpected status %#v", found)
	}

	none := checkShell("windows", func(string) (string, bool) { return "", false })
	if none.Available {
		t.Fatalf("expected no shell, got %#v", none)
	}
	if none.Command != "powershell.exe" {
		t.Fatalf("expected first candidate to be reported, got %q", none.Command)
	}
}
