// Package main hosts the bitrateviewer CLI entrypoint and command graph.
//
// Commands resolve configuration once, build an ffprobe client on top of the
// shell-backed process runner, and consult the probe cache before running
// ffprobe. Bitrate figures come from internal/bitrate; this package only
// formats them as tables, JSON or YAML.
package main
