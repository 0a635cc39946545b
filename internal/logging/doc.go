// Package logging assembles the slog loggers used by bitrateviewer.
//
// It owns the console and JSON handlers and the level and output plumbing.
// Console output goes to stderr so that command output on stdout can be piped.
// With a log directory configured, records are also appended as JSON to a
// file, each tagged with the id of the run that wrote it.
// A no-op logger is provided for tests and for components constructed without one.
package logging
