// Package ffprobe runs ffprobe through a shell and decodes its output.
//
// Key types:
//   - Client: resolves the ffprobe binary once and issues probe commands
//   - Result: the raw JSON document from -show_format -show_streams
//   - Packet: one CSV packet record from -show_entries packet=...
//
// Entry points:
//   - Client.Metadata: container and stream metadata as a model.Container
//   - Client.Packets: packets of one video stream, streamed as they are parsed
//   - Client.Version: the ffprobe release number
//
// Commands go through an Executor (procexec.Runner in production) so tests
// can substitute canned output.
package ffprobe
