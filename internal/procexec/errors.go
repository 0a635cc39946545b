package procexec

import (
	"errors"
	"fmt"
)

// ErrSpawn marks failures to start the shell process.
var ErrSpawn = errors.New("process spawn failed")

// SpawnError carries the shell and command that could not be started.
type SpawnError struct {
	Shell   string
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%v: %s -> %s: %v", ErrSpawn, e.Shell, e.Command, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}
