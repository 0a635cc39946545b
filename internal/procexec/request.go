package procexec

import (
	"io"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
)

// Request describes one shell invocation.
type Request struct {
	// Command is passed verbatim to the shell.
	Command string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env overlays the inherited environment. A nil value removes the variable.
	Env map[string]*string
	// Stdout and Stderr receive each line followed by "\n". They are written
	// from different goroutines, so a shared writer must be safe for that.
	Stdout io.Writer
	Stderr io.Writer
	// StdoutLines and StderrLines receive each line without its terminator
	// and are closed by Execute when the stream ends.
	StdoutLines chan<- string
	StderrLines chan<- string
	// Encoding decodes child output into UTF-8. Nil means output is already UTF-8.
	Encoding encoding.Encoding
}

// Result reports how the child exited.
type Result struct {
	ExitCode int
}

// EnvValue returns a pointer for use in Request.Env.
func EnvValue(value string) *string {
	return &value
}

func mergeEnv(base []string, overlay map[string]*string) []string {
	if len(overlay) == 0 {
		return nil
	}
	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]string, 0, len(base)+len(overlay))
	for _, entry := range base {
		name, _, _ := strings.Cut(entry, "=")
		if containsKey(keys, name) {
			continue
		}
		merged = append(merged, entry)
	}
	for _, key := range keys {
		if value := overlay[key]; value != nil {
			merged = append(merged, key+"="+*value)
		}
	}
	return merged
}

func containsKey(keys []string, name string) bool {
	for _, key := range keys {
		if envKeyEqual(key, name) {
			return true
		}
	}
	return false
}

func envKeyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
