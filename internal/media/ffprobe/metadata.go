package ffprobe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/media/model"
	"bitrateviewer/internal/procexec"
)

var metadataArgs = []string{
	"-print_format", "json=compact=1",
	"-loglevel", "fatal",
	"-show_error",
	"-show_format",
	"-show_streams",
	"-show_entries", "stream_tags=duration",
}

// Metadata probes path and returns its container and stream metadata.
func (c *Client) Metadata(ctx context.Context, path string) (*model.Container, error) {
	data, err := c.MetadataJSON(ctx, path)
	if err != nil {
		return nil, err
	}
	container, err := ParseContainer(data)
	if err != nil {
		return nil, fmt.Errorf("ffprobe metadata %s: %w", path, err)
	}
	c.logger.Debug("metadata parsed",
		logging.String(logging.FieldFile, path),
		logging.Int("streams", len(container.Streams)),
		logging.Int("video_streams", len(container.Video)),
	)
	return container, nil
}

// MetadataJSON returns the raw JSON document for path. The probe cache stores
// this document so it can be re-parsed without running ffprobe.
func (c *Client) MetadataJSON(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ffprobe metadata: empty path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("ffprobe metadata: %w", err)
	}
	command, err := c.commandLine(path, metadataArgs...)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	res, err := c.exec.Execute(ctx, procexec.Request{
		Command: command,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("ffprobe metadata %s: %w", path, err)
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			if result, parseErr := ParseResult(stdout.Bytes()); parseErr == nil && result.Error != nil {
				detail = result.Error.String
			}
		}
		return nil, &ExecutionError{ExitCode: res.ExitCode, Command: command, Stderr: detail}
	}
	return stdout.Bytes(), nil
}
