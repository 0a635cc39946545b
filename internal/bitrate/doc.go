// Package bitrate turns a probed packet sequence into bitrate figures.
//
// Packets are bucketed into fixed-length intervals in the order they were
// received, which for ffprobe is decoding order. A packet that crosses an
// interval boundary has its bytes split between the two intervals in
// proportion to the time it spends in each, and a packet longer than one
// interval is spread across every interval it covers. Series caches the
// per-packet figures and recomputes them only when packets change or the
// interval parameters differ from the last call.
//
// Everything here is pure computation; there is no process or file access.
package bitrate
