package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.FFprobe.Threads < 0 {
		return errors.New("ffprobe.threads must be zero or positive")
	}
	if err := c.validateBitrate(); err != nil {
		return err
	}
	if c.Probe.Parallelism < 1 {
		return errors.New("probe.parallelism must be at least 1")
	}
	if c.Probe.TimeoutSeconds < 0 {
		return errors.New("probe.timeout_seconds must be zero or positive")
	}
	return c.validateLogging()
}

func (c *Config) validateBitrate() error {
	if c.Bitrate.IntervalSeconds <= 0 {
		return errors.New("bitrate.interval_seconds must be positive")
	}
	if adj := c.Bitrate.StartTimeAdjustment; adj != nil && *adj < 0 {
		return errors.New("bitrate.start_time_adjustment must be zero or positive")
	}
	switch c.Bitrate.PlotView {
	case PlotViewFrame, PlotViewSecond, PlotViewGOP:
		return nil
	default:
		return fmt.Errorf("bitrate.plot_view: unsupported value %q (want frame, second or gop)", c.Bitrate.PlotView)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
