// Package shell picks the platform shell used to run probe commands.
//
// Commands are always handed to a shell as a single string so that the same
// command text works on every platform. The candidate table is keyed by
// GOOS:
//   - windows: powershell.exe with an encoded command, then cmd.exe
//   - darwin: zsh as a login shell
//   - everything else: sh
//
// Which walks PATH lazily and is also used to locate ffprobe itself.
package shell
