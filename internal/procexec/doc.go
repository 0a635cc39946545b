// Package procexec runs command strings through the platform shell and
// streams their output line by line.
//
// Runner.Execute resolves the shell, starts the child in its own process
// group (a hidden window on Windows), and reads stdout and stderr on two
// independent goroutines. Every line is written to the optional sink with a
// trailing newline and pushed to the optional channel; both channels are
// closed once their stream ends. A non-zero exit status is reported in
// Result.ExitCode rather than as an error. Cancelling the context kills the
// whole process group.
package procexec
