package ffprobe

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bitrateviewer/internal/procexec"
	"bitrateviewer/internal/shell"
)

type stubExecutor struct {
	mu       sync.Mutex
	commands []string
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func (s *stubExecutor) Execute(ctx context.Context, req procexec.Request) (procexec.Result, error) {
	s.mu.Lock()
	s.commands = append(s.commands, req.Command)
	s.mu.Unlock()

	defer func() {
		if req.StdoutLines != nil {
			close(req.StdoutLines)
		}
		if req.StderrLines != nil {
			close(req.StderrLines)
		}
	}()
	if s.err != nil {
		return procexec.Result{ExitCode: -1}, s.err
	}
	for _, line := range splitLines(s.stdout) {
		if req.Stdout != nil {
			_, _ = io.WriteString(req.Stdout, line+"\n")
		}
		if req.StdoutLines != nil {
			select {
			case req.StdoutLines <- line:
			case <-ctx.Done():
				return procexec.Result{ExitCode: -1}, ctx.Err()
			}
		}
	}
	if req.Stderr != nil && s.stderr != "" {
		_, _ = io.WriteString(req.Stderr, s.stderr+"\n")
	}
	return procexec.Result{ExitCode: s.exitCode}, nil
}

func (s *stubExecutor) Shell() (shell.Resolved, error) {
	return shell.Resolved{Spec: shell.Spec{Name: "sh", Family: shell.FamilyPOSIX}, Path: "/bin/sh"}, nil
}

func (s *stubExecutor) lastCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commands) == 0 {
		return ""
	}
	return s.commands[len(s.commands)-1]
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func fakeBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func mediaFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip one.mkv")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, exec *stubExecutor) *Client {
	t.Helper()
	return New(WithBinary(fakeBinary(t)), WithRunner(exec))
}

const sampleMetadata = `{"streams":[` +
	`{"index":0,"codec_name":"h264","codec_type":"video","profile":"High","width":1920,"height":1080,` +
	`"pix_fmt":"yuv420p","color_range":"tv","field_order":"progressive","is_avc":"true",` +
	`"avg_frame_rate":"24000/1001","r_frame_rate":"24000/1001","time_base":"1/1000","start_time":"0.000000","tags":{"DURATION":"00:01:30.500000000"}},` +
	`{"index":1,"codec_name":"aac","codec_type":"audio","channels":6,"channel_layout":"5.1","sample_rate":"48000","bit_rate":"N/A","duration":"90.5"},` +
	`{"index":2,"codec_name":"mjpeg","codec_type":"video","width":600,"height":600,"avg_frame_rate":"0/0","r_frame_rate":"90000/1"},` +
	`{"index":3,"codec_name":"subrip","codec_type":"subtitle"}],` +
	`"format":{"filename":"clip.mkv","nb_streams":4,"format_name":"matroska,webm","start_time":"0.000000","size":"123456789","bit_rate":"10000000"}}`

func TestMetadataParsesContainer(t *testing.T) {
	exec := &stubExecutor{stdout: sampleMetadata}
	client := newTestClient(t, exec)
	path := mediaFile(t)

	container, err := client.Metadata(context.Background(), path)
	if err != nil {
		t.Fatalf("Metadata returned error: %v", err)
	}
	if len(container.Streams) != 4 {
		t.Fatalf("expected 4 streams, got %d", len(container.Streams))
	}
	if len(container.Video) != 1 {
		t.Fatalf("expected cover art to be excluded from video, got %d video streams", len(container.Video))
	}
	if len(container.Audio) != 1 || len(container.Subtitle) != 1 {
		t.Fatalf("unexpected audio/subtitle counts: %d/%d", len(container.Audio), len(container.Subtitle))
	}
	video := container.Video[0]
	if video.Resolution == nil || video.Resolution.Width != 1920 || video.Resolution.Height != 1080 {
		t.Fatalf("unexpected resolution %+v", video.Resolution)
	}
	if video.IsAVC == nil || !*video.IsAVC {
		t.Fatalf("expected is_avc true, got %v", video.IsAVC)
	}
	if video.Duration == nil || *video.Duration != 90.5 {
		t.Fatalf("expected DURATION tag fallback 90.5, got %v", video.Duration)
	}
	if got := video.ShortDescription(); got != "1080-23.976p, YUV420, TV" {
		t.Fatalf("unexpected short description %q", got)
	}
	audio := container.Audio[0]
	if audio.BitRate != nil {
		t.Fatalf("expected N/A bit rate to be nil, got %d", *audio.BitRate)
	}
	if audio.Channels == nil || *audio.Channels != 6 {
		t.Fatalf("unexpected channels %v", audio.Channels)
	}
	if container.Size == nil || *container.Size != 123456789 {
		t.Fatalf("unexpected size %v", container.Size)
	}
	if container.Duration == nil || *container.Duration != 90.5 {
		t.Fatalf("expected duration fallback from first stream, got %v", container.Duration)
	}

	cmd := exec.lastCommand()
	for _, want := range []string{"-hide_banner", "-threads 11", "-print_format json=compact=1", "-show_error", "-show_streams", `"` + path + `"`} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("command %q missing %q", cmd, want)
		}
	}
}

func TestMetadataMissingFile(t *testing.T) {
	exec := &stubExecutor{}
	client := newTestClient(t, exec)
	_, err := client.Metadata(context.Background(), filepath.Join(t.TempDir(), "missing.mkv"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if len(exec.commands) != 0 {
		t.Fatalf("expected no command to run, got %v", exec.commands)
	}
}

func TestMetadataExecutionError(t *testing.T) {
	exec := &stubExecutor{
		stdout:   `{"error":{"code":-1094995529,"string":"Invalid data found when processing input"}}`,
		exitCode: 1,
	}
	client := newTestClient(t, exec)
	_, err := client.Metadata(context.Background(), mediaFile(t))
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.ExitCode != 1 {
		t.Fatalf("unexpected exit code %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Stderr, "Invalid data") {
		t.Fatalf("expected JSON error text as detail, got %q", execErr.Stderr)
	}
	if !errors.Is(err, ErrExecution) {
		t.Fatal("expected errors.Is ErrExecution")
	}
}

func TestMetadataMalformedJSON(t *testing.T) {
	client := newTestClient(t, &stubExecutor{stdout: "{not json"})
	_, err := client.Metadata(context.Background(), mediaFile(t))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestMalformedRationalIsParseError(t *testing.T) {
	_, err := ParseContainer([]byte(`{"streams":[{"index":0,"codec_type":"video","avg_frame_rate":"fast"}],"format":{}}`))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestNumberAndTruthy(t *testing.T) {
	result, err := ParseResult([]byte(`{"streams":[
		{"index":0,"codec_type":"video","width":"N/A","height":"abc","is_avc":1},
		{"index":1,"codec_type":"video","width":"720","height":576,"is_avc":"0"},
		{"index":2,"codec_type":"video","is_avc":"yes"},
		{"index":3,"codec_type":"video","is_avc":null},
		{"index":4,"codec_type":"video","is_avc":"false"}
	],"format":{}}`))
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if result.Streams[0].Width.Valid || result.Streams[0].Height.Valid {
		t.Fatal("expected N/A and text dimensions to be invalid")
	}
	if got := result.Streams[1].Width.Int(); got == nil || *got != 720 {
		t.Fatalf("expected string width 720, got %v", got)
	}
	wantAVC := []bool{true, false, true, false, false}
	for i, want := range wantAVC {
		got := result.Streams[i].IsAVC.Bool()
		if got == nil || *got != want {
			t.Fatalf("stream %d: expected is_avc %v, got %v", i, want, got)
		}
	}
	if result.VideoStreamCount() != 5 || result.AudioStreamCount() != 0 {
		t.Fatal("unexpected stream counts")
	}
}

func TestParseTagDuration(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"00:00:10.500000000", 10.5, true},
		{"01:02:03", 3723, true},
		{"10.5", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseTagDuration(tc.text)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseTagDuration(%q) = %v, %v; want %v, %v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParsePacketLine(t *testing.T) {
	p, err := ParsePacketLine("packet,0.041708,-0.041708,0.041708,15873,K_")
	if err != nil {
		t.Fatalf("ParsePacketLine returned error: %v", err)
	}
	if p.PTSTime == nil || *p.PTSTime != 0.041708 {
		t.Fatalf("unexpected pts %v", p.PTSTime)
	}
	if p.DTSTime == nil || *p.DTSTime != -0.041708 {
		t.Fatalf("unexpected dts %v", p.DTSTime)
	}
	if p.Size == nil || *p.Size != 15873 {
		t.Fatalf("unexpected size %v", p.Size)
	}
	if !p.Keyframe() {
		t.Fatal("expected keyframe")
	}

	p, err = ParsePacketLine("PACKET,N/A,N/A,-1,-5,__")
	if err != nil {
		t.Fatalf("ParsePacketLine returned error: %v", err)
	}
	if p.PTSTime != nil || p.DTSTime != nil {
		t.Fatal("expected N/A timestamps to be nil")
	}
	if p.DurationTime == nil || *p.DurationTime != 0 {
		t.Fatalf("expected negative duration clamped to 0, got %v", p.DurationTime)
	}
	if p.Size == nil || *p.Size != 0 {
		t.Fatalf("expected negative size clamped to 0, got %v", p.Size)
	}

	p, err = ParsePacketLine("packet,1.0")
	if err != nil {
		t.Fatalf("short line returned error: %v", err)
	}
	if p.Size != nil || p.Flags != "" {
		t.Fatal("expected missing trailing fields to be empty")
	}

	p, err = ParsePacketLine("packet,inf,NaN,-Infinity,900,___")
	if err != nil {
		t.Fatalf("ParsePacketLine returned error: %v", err)
	}
	if p.PTSTime != nil || p.DTSTime != nil || p.DurationTime != nil {
		t.Fatalf("expected non-finite times to be nil, got %v %v %v", p.PTSTime, p.DTSTime, p.DurationTime)
	}
	if p.Size == nil || *p.Size != 900 {
		t.Fatalf("unexpected size %v", p.Size)
	}

	if _, err := ParsePacketLine("frame,1,2,3,4,K"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for wrong tag, got %v", err)
	}
}

func TestPacketsStreamsInOrder(t *testing.T) {
	exec := &stubExecutor{stdout: strings.Join([]string{
		"packet,0.000000,0.000000,0.041708,1000,K_",
		"",
		"packet,0.083417,0.041708,0.041708,300,__",
		"packet,0.041708,0.083417,0.041708,200,__",
	}, "\n")}
	client := newTestClient(t, exec)

	packets, err := client.CollectPackets(context.Background(), "clip.mkv", 1)
	if err != nil {
		t.Fatalf("CollectPackets returned error: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("expected 3 packets, got %d", len(packets))
	}
	sizes := []int64{1000, 300, 200}
	for i, want := range sizes {
		if *packets[i].Size != want {
			t.Fatalf("packet %d: expected size %d, got %d", i, want, *packets[i].Size)
		}
	}
	cmd := exec.lastCommand()
	for _, want := range []string{"-print_format csv", "-select_streams v:1", "packet=dts_time,duration_time,pts_time,size,flags", `"clip.mkv"`} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("command %q missing %q", cmd, want)
		}
	}
}

func TestPacketsParseErrorStops(t *testing.T) {
	exec := &stubExecutor{stdout: "packet,0,0,0.04,10,K_\nbogus,line\npacket,0.04,0.04,0.04,10,__"}
	client := newTestClient(t, exec)
	packets, err := client.CollectPackets(context.Background(), "clip.mkv", 0)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected packets before the bad line, got %d", len(packets))
	}
}

func TestPacketsNonZeroExit(t *testing.T) {
	exec := &stubExecutor{stderr: "clip.mkv: No such file or directory", exitCode: 1}
	client := newTestClient(t, exec)
	_, err := client.CollectPackets(context.Background(), "clip.mkv", 0)
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || execErr.ExitCode != 1 {
		t.Fatalf("expected ExecutionError with exit 1, got %v", err)
	}
	if !strings.Contains(execErr.Stderr, "No such file") {
		t.Fatalf("unexpected stderr %q", execErr.Stderr)
	}
}

func TestPacketsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &stubExecutor{err: context.Canceled}
	client := newTestClient(t, exec)
	_, err := client.CollectPackets(ctx, "clip.mkv", 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLineQueueUnbounded(t *testing.T) {
	q := newLineQueue()
	for i := 0; i < 1000; i++ {
		q.In() <- "line"
	}
	close(q.in)
	count := 0
	for range q.Out() {
		count++
	}
	if count != 1000 {
		t.Fatalf("expected 1000 lines, got %d", count)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		build  int
	}{
		{"ffprobe version 6.1.1-3ubuntu5 Copyright (c) 2007-2023 the FFmpeg developers\nbuilt with gcc 13", "6.1.1", 0},
		{"ffprobe version n7.0.2 Copyright (c)", "7.0.2", 0},
		{"ffprobe version 4.4 Copyright", "4.4.0", 0},
		{"some banner\n5.1.2.7", "5.1.2", 7},
	}
	for _, tc := range tests {
		got, err := ParseVersion(tc.output)
		if err != nil {
			t.Fatalf("ParseVersion(%q) returned error: %v", tc.output, err)
		}
		if got.String() != tc.want || got.Build != tc.build {
			t.Fatalf("ParseVersion(%q) = %+v, want %s build %d", tc.output, got, tc.want, tc.build)
		}
	}
	if _, err := ParseVersion("ffprobe version git-2024-01-01"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestClientVersion(t *testing.T) {
	exec := &stubExecutor{stdout: "ffprobe version 6.0 Copyright (c) 2007-2023"}
	client := newTestClient(t, exec)
	v, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if v.Major != 6 || v.Minor != 0 {
		t.Fatalf("unexpected version %+v", v)
	}
	if !strings.HasSuffix(exec.lastCommand(), " -version") {
		t.Fatalf("unexpected command %q", exec.lastCommand())
	}
}

func TestBinaryPathNotFound(t *testing.T) {
	client := New(WithBinary(filepath.Join(t.TempDir(), "nope", "ffprobe")), WithRunner(&stubExecutor{}))
	if _, err := client.BinaryPath(); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
	if _, err := client.Metadata(context.Background(), mediaFile(t)); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected Metadata to surface ErrExecutableNotFound, got %v", err)
	}
}

func TestBinaryPathFromWorkingDirectoryIsAbsolute(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, executableName("ffprobe")), []byte("stub"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("PATH", filepath.Join(t.TempDir(), "missing"))

	path, err := New(WithRunner(&stubExecutor{})).BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath returned error: %v", err)
	}
	if !filepath.IsAbs(path) || filepath.Base(path) != executableName("ffprobe") {
		t.Fatalf("expected an absolute ffprobe path, got %q", path)
	}
}

func TestCommandLineQuotesBinary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tools dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	binary := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(binary, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	client := New(WithBinary(binary), WithRunner(&stubExecutor{}), WithThreads(4))
	cmd, err := client.commandLine(`a "b".mkv`, "-show_format")
	if err != nil {
		t.Fatalf("commandLine returned error: %v", err)
	}
	want := `"` + binary + `" -hide_banner -threads 4 -show_format "a \"b\".mkv"`
	if cmd != want {
		t.Fatalf("commandLine = %q, want %q", cmd, want)
	}
}
