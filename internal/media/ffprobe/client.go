package ffprobe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/procexec"
	"bitrateviewer/internal/shell"
)

// DefaultThreads is passed to -threads when no override is configured.
const DefaultThreads = 11

// Executor runs one shell command. *procexec.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, req procexec.Request) (procexec.Result, error)
}

// shellReporter is implemented by executors that know which shell they use,
// so command lines can be quoted for it.
type shellReporter interface {
	Shell() (shell.Resolved, error)
}

// Client issues ffprobe commands. It is safe for concurrent use.
type Client struct {
	binary  string
	exec    Executor
	logger  *slog.Logger
	threads int

	once       sync.Once
	resolved   string
	resolveErr error
}

// Option configures a Client.
type Option func(*Client)

// WithBinary sets an explicit ffprobe path or name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		c.binary = strings.TrimSpace(binary)
	}
}

// WithRunner overrides the command executor.
func WithRunner(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithThreads overrides the -threads value. Negative values are ignored.
func WithThreads(threads int) Option {
	return func(c *Client) {
		if threads >= 0 {
			c.threads = threads
		}
	}
}

// New constructs a Client. Without WithRunner a procexec.Runner sharing the
// client logger is used.
func New(opts ...Option) *Client {
	c := &Client{
		logger:  logging.NewNop(),
		threads: DefaultThreads,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = procexec.New(procexec.WithLogger(c.logger))
	}
	c.logger = logging.NewComponentLogger(c.logger, "ffprobe")
	return c
}

// BinaryPath returns the ffprobe executable path, resolving it on first use.
func (c *Client) BinaryPath() (string, error) {
	c.once.Do(func() {
		c.resolved, c.resolveErr = resolveBinary(c.binary)
		if c.resolveErr == nil {
			c.logger.Debug("ffprobe resolved", logging.String("path", c.resolved))
		}
	})
	return c.resolved, c.resolveErr
}

func resolveBinary(configured string) (string, error) {
	name := configured
	if name == "" {
		name = executableName("ffprobe")
	}
	if strings.ContainsAny(name, `/\`) {
		info, err := os.Stat(name)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, name)
		}
		if abs, err := filepath.Abs(name); err == nil {
			return abs, nil
		}
		return name, nil
	}
	if path, ok := shell.First(name); ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s is not on PATH", ErrExecutableNotFound, name)
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func (c *Client) family() shell.Family {
	if reporter, ok := c.exec.(shellReporter); ok {
		if resolved, err := reporter.Shell(); err == nil {
			return resolved.Family
		}
	}
	return shell.FamilyFor(runtime.GOOS)
}

func (c *Client) invocation() (string, shell.Family, error) {
	binary, err := c.BinaryPath()
	if err != nil {
		return "", 0, err
	}
	family := c.family()
	return shell.Invoke(family, binary), family, nil
}

// commandLine renders `<ffprobe> -hide_banner -threads N <args...> "<path>"`.
func (c *Client) commandLine(path string, args ...string) (string, error) {
	invocation, family, err := c.invocation()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(args)+5)
	parts = append(parts, invocation, "-hide_banner", "-threads", strconv.Itoa(c.threads))
	parts = append(parts, args...)
	parts = append(parts, shell.Quote(family, path))
	return strings.Join(parts, " "), nil
}
