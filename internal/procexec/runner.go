package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/shell"
)

// maxLineBytes bounds a single output line. Compact JSON from ffprobe can
// put a whole section on one line.
const maxLineBytes = 16 << 20

// Runner executes commands through a shell. The zero value is not usable;
// construct with New.
type Runner struct {
	logger      *slog.Logger
	resolve     func() (shell.Resolved, error)
	logCommands bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for command and exit logging.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolver overrides shell resolution.
func WithResolver(resolve func() (shell.Resolved, error)) Option {
	return func(r *Runner) {
		if resolve != nil {
			r.resolve = resolve
		}
	}
}

// WithLogCommands logs every command line at info level instead of debug.
func WithLogCommands(enabled bool) Option {
	return func(r *Runner) {
		r.logCommands = enabled
	}
}

// New constructs a Runner that resolves the platform shell on each call.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:  logging.NewNop(),
		resolve: shell.Resolve,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "procexec")
	return r
}

// Shell reports the shell the next Execute call would use.
func (r *Runner) Shell() (shell.Resolved, error) {
	return r.resolve()
}

// Execute runs req.Command and blocks until the child exits and both output
// streams are drained, or until ctx is done.
func (r *Runner) Execute(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	streaming := false
	defer func() {
		if !streaming {
			closeLines(req.StdoutLines)
			closeLines(req.StderrLines)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("execute command: %w", err)
	}

	sh, err := r.resolve()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	args, err := sh.Command(req.Command)
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Shell: sh.Path, Command: req.Command, Err: err}
	}

	logger := r.logger.With(
		logging.String("run_id", uuid.NewString()),
		logging.String("shell", sh.Name),
	)
	level := slog.LevelDebug
	if r.logCommands {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, "executing command", logging.String("command", req.Command))

	cmd := exec.Command(sh.Path, args...) //nolint:gosec
	cmd.Dir = req.Dir
	cmd.Env = mergeEnv(os.Environ(), req.Env)
	// Children never get input; reads from stdin see EOF.
	cmd.Stdin = nil
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Shell: sh.Path, Command: req.Command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Shell: sh.Path, Command: req.Command, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &SpawnError{Shell: sh.Path, Command: req.Command, Err: err}
	}
	streaming = true

	var (
		wg      sync.WaitGroup
		once    sync.Once
		readErr error
	)
	record := func(err error) {
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		once.Do(func() { readErr = err })
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		record(pump(ctx, stdout, req.Encoding, req.Stdout, req.StdoutLines))
	}()
	go func() {
		defer wg.Done()
		record(pump(ctx, stderr, req.Encoding, req.Stderr, req.StderrLines))
	}()

	waitCh := make(chan error, 1)
	go func() {
		wg.Wait()
		waitCh <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		if err := killProcessTree(cmd); err != nil {
			logger.Warn("kill process group failed", logging.Error(err))
		}
		_ = stdout.Close()
		_ = stderr.Close()
		<-waitCh
		logger.Debug("command canceled", logging.Duration("elapsed", time.Since(started)))
		return Result{ExitCode: -1}, fmt.Errorf("execute command: %w", ctx.Err())
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{ExitCode: -1}, fmt.Errorf("wait for command: %w", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}
	logger.Debug("command finished",
		logging.Int("exit_code", exitCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if readErr != nil {
		return Result{ExitCode: exitCode}, fmt.Errorf("read command output: %w", readErr)
	}
	return Result{ExitCode: exitCode}, nil
}

type flusher interface {
	Flush() error
}

// pump copies src line by line into sink and lines, closing lines when src
// is exhausted.
func pump(ctx context.Context, src io.Reader, enc encoding.Encoding, sink io.Writer, lines chan<- string) error {
	defer closeLines(lines)

	reader := src
	if enc != nil {
		reader = transform.NewReader(src, enc.NewDecoder())
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var sinkErr error
	for scanner.Scan() {
		line := scanner.Text()
		if sink != nil && sinkErr == nil {
			if _, err := io.WriteString(sink, line+"\n"); err != nil {
				sinkErr = fmt.Errorf("write output sink: %w", err)
			}
		}
		if lines != nil {
			select {
			case lines <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if f, ok := sink.(flusher); ok && sinkErr == nil {
		if err := f.Flush(); err != nil {
			sinkErr = fmt.Errorf("flush output sink: %w", err)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return sinkErr
}

func closeLines(lines chan<- string) {
	if lines != nil {
		close(lines)
	}
}
