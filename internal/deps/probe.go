package deps

import (
	"context"
	"fmt"
	"runtime"

	"bitrateviewer/internal/media/ffprobe"
	"bitrateviewer/internal/shell"
)

// Versioner is the part of the ffprobe client the checks need.
type Versioner interface {
	Version(ctx context.Context) (ffprobe.Version, error)
}

// FFprobeRequirement describes the ffprobe binary. An empty binary means the
// default name searched on PATH.
func FFprobeRequirement(binary string) Requirement {
	if binary == "" {
		binary = "ffprobe"
	}
	return Requirement{
		Name:        "FFprobe",
		Command:     binary,
		Description: "Reads container metadata and packets",
	}
}

// CheckFFprobe locates the ffprobe binary and, when found, asks the client
// for its version.
func CheckFFprobe(ctx context.Context, binary string, client Versioner) Status {
	status := CheckBinaries([]Requirement{FFprobeRequirement(binary)})[0]
	if !status.Available {
		status.Detail += "; install FFmpeg or set [ffprobe].binary"
		return status
	}
	if client == nil {
		return status
	}
	version, err := client.Version(ctx)
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("version check failed: %v", err)
		return status
	}
	status.Detail = "version " + version.String()
	return status
}

// CheckShell reports the shell commands are launched through on this OS.
func CheckShell() Status {
	return checkShell(runtime.GOOS, nil)
}

func checkShell(goos string, lookup shell.LookupFunc) Status {
	result := Status{
		Name:        "Shell",
		Description: "Launches ffprobe",
	}
	candidates := shell.Candidates(goos)
	if len(candidates) > 0 {
		result.Command = candidates[0].Name
	}
	resolved, err := shell.ResolveFor(goos, lookup)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Command = resolved.Path
	result.Available = true
	result.Detail = resolved.Family.String()
	return result
}
