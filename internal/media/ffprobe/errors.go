package ffprobe

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutableNotFound reports that no ffprobe binary could be located.
	ErrExecutableNotFound = errors.New("ffprobe executable not found")
	// ErrExecution marks ffprobe runs that exited non-zero.
	ErrExecution = errors.New("ffprobe execution failed")
	// ErrParse marks output ffprobe produced that could not be decoded.
	ErrParse = errors.New("ffprobe output parse failed")
)

// ExecutionError reports a non-zero ffprobe exit.
type ExecutionError struct {
	ExitCode int
	Command  string
	Stderr   string
}

func (e *ExecutionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%v: exit code %d: %s", ErrExecution, e.ExitCode, e.Command)
	}
	return fmt.Sprintf("%v: exit code %d: %s: %s", ErrExecution, e.ExitCode, e.Command, e.Stderr)
}

func (e *ExecutionError) Unwrap() error {
	return ErrExecution
}

// ParseError carries the text that failed to decode.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	if e.Err == nil {
		return fmt.Sprintf("%v: %q", ErrParse, text)
	}
	return fmt.Sprintf("%v: %v: %q", ErrParse, e.Err, text)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}
