package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeFFprobe(); err != nil {
		return err
	}
	c.Bitrate.PlotView = strings.ToLower(strings.TrimSpace(c.Bitrate.PlotView))
	if c.Bitrate.PlotView == "" {
		c.Bitrate.PlotView = defaultPlotView
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeFFprobe() error {
	c.FFprobe.Binary = strings.TrimSpace(c.FFprobe.Binary)
	if c.FFprobe.Binary == "" {
		if value, ok := os.LookupEnv(EnvFFprobe); ok {
			c.FFprobe.Binary = strings.TrimSpace(value)
		}
	}
	// Bare names are looked up on PATH later.
	if c.FFprobe.Binary == "" || !isPathLike(c.FFprobe.Binary) {
		return nil
	}
	var err error
	if c.FFprobe.Binary, err = expandPath(c.FFprobe.Binary); err != nil {
		return fmt.Errorf("ffprobe.binary: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	var err error
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func isPathLike(value string) bool {
	return strings.HasPrefix(value, "~") || strings.ContainsAny(value, `/\`)
}
