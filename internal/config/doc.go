// Package config loads bitrateviewer configuration from TOML.
//
// Load returns defaults when no file exists, expands "~" in path fields, applies
// the BITRATEVIEWER_FFPROBE environment fallback and validates the result.
// CreateSample writes the embedded sample file used by `config init`.
package config
