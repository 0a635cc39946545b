// Package deps reports whether the external programs bitrateviewer relies on
// are reachable: the ffprobe binary and a shell to launch it through.
package deps
