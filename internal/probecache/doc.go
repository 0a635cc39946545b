// Package probecache persists ffprobe results in a SQLite database so that
// repeated runs over the same files skip the probe.
//
// Entries are keyed by absolute path and invalidated when the file's size or
// modification time changes. Metadata is stored as the raw ffprobe JSON
// document and packets as rows, one per packet, in arrival order. A packet
// set is only visible once it has been written completely.
//
// Writers from different processes are serialised through a lock file next
// to the database (gofrs/flock); readers rely on SQLite's WAL mode.
package probecache
