package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bitrateviewer/internal/config"
	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/media/ffprobe"
	"bitrateviewer/internal/probecache"
	"bitrateviewer/internal/procexec"
)

type globalFlags struct {
	config      string
	ffprobe     string
	threads     int
	logLevel    string
	logFormat   string
	logCommands bool
	noCache     bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	clientOnce sync.Once
	client     *ffprobe.Client

	cacheOnce sync.Once
	cache     *probecache.Cache
	cacheErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyFlags(cfg); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyFlags layers command-line overrides on top of the loaded file.
func (c *commandContext) applyFlags(cfg *config.Config) error {
	f := c.flags
	if binary := strings.TrimSpace(f.ffprobe); binary != "" {
		if strings.ContainsAny(binary, `/\`) || strings.HasPrefix(binary, "~") {
			expanded, err := config.ExpandPath(binary)
			if err != nil {
				return fmt.Errorf("--ffprobe: %w", err)
			}
			binary = expanded
		}
		cfg.FFprobe.Binary = binary
	}
	if f.threads >= 0 {
		cfg.FFprobe.Threads = f.threads
	}
	if level := strings.TrimSpace(f.logLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if format := strings.TrimSpace(f.logFormat); format != "" {
		cfg.Logging.Format = strings.ToLower(format)
	}
	if f.logCommands {
		cfg.Probe.LogCommands = true
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	return cfg.Validate()
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	if cfg == nil {
		def := config.Default()
		return &def
	}
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) loggerValue() *slog.Logger {
	logger, err := c.ensureLogger()
	if err != nil || logger == nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) probeClient() *ffprobe.Client {
	c.clientOnce.Do(func() {
		cfg := c.configValue()
		logger := c.loggerValue()
		runner := procexec.New(
			procexec.WithLogger(logger),
			procexec.WithLogCommands(cfg.Probe.LogCommands),
		)
		c.client = ffprobe.New(
			ffprobe.WithBinary(cfg.FFprobe.Binary),
			ffprobe.WithThreads(cfg.FFprobe.Threads),
			ffprobe.WithRunner(runner),
			ffprobe.WithLogger(logger),
		)
	})
	return c.client
}

// probeCache opens the cache on first use. A nil cache with a nil error means
// caching is disabled.
func (c *commandContext) probeCache() (*probecache.Cache, error) {
	c.cacheOnce.Do(func() {
		cfg := c.configValue()
		if !cfg.Cache.Enabled {
			return
		}
		c.cache, c.cacheErr = probecache.Open(cfg.Cache.Dir, c.loggerValue())
	})
	return c.cache, c.cacheErr
}

func (c *commandContext) close() error {
	if c.cache == nil {
		return nil
	}
	err := c.cache.Close()
	c.cache = nil
	if err != nil {
		return fmt.Errorf("close probe cache: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
