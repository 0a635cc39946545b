package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath      = "~/.config/bitrateviewer/config.toml"
	projectConfigName      = "bitrateviewer.toml"
	defaultFFprobeThreads  = 11
	defaultIntervalSeconds = 1.0
	defaultPlotView        = PlotViewFrame
	defaultParallelism     = 2
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"

	// EnvFFprobe overrides [ffprobe].binary when the file leaves it empty.
	EnvFFprobe = "BITRATEVIEWER_FFPROBE"
)

// Plot views accepted by [bitrate].plot_view.
const (
	PlotViewFrame  = "frame"
	PlotViewSecond = "second"
	PlotViewGOP    = "gop"
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		FFprobe: FFprobe{
			Threads: defaultFFprobeThreads,
		},
		Bitrate: Bitrate{
			IntervalSeconds: defaultIntervalSeconds,
			PlotView:        defaultPlotView,
		},
		Probe: Probe{
			Parallelism: defaultParallelism,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "bitrateviewer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/bitrateviewer"
	}
	return filepath.Join(home, ".cache", "bitrateviewer")
}
