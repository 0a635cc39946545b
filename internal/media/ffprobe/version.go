package ffprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bitrateviewer/internal/procexec"
)

// Version is an ffprobe release number.
type Version struct {
	Major int
	Minor int
	Patch int
	Build int
	// Raw is the token the number was read from.
	Raw string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

var versionNumberPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ParseVersion reads the version from `ffprobe -version` output. The token
// after "version" on the first line is used when present, otherwise the last
// whitespace-separated token of the output.
func ParseVersion(output string) (Version, error) {
	token := versionToken(output)
	number := strings.TrimPrefix(token, "n")
	match := versionNumberPattern.FindStringSubmatch(number)
	if match == nil {
		return Version{}, &ParseError{Text: token, Err: errors.New("no version number")}
	}
	parts := [4]int{}
	for i := range parts {
		if match[i+1] != "" {
			parts[i], _ = strconv.Atoi(match[i+1])
		}
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Build: parts[3], Raw: token}, nil
}

func versionToken(output string) string {
	trimmed := strings.TrimSpace(output)
	firstLine, _, _ := strings.Cut(trimmed, "\n")
	fields := strings.Fields(firstLine)
	for i, field := range fields {
		if strings.EqualFold(field, "version") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	all := strings.Fields(trimmed)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// Version runs `ffprobe -version` and parses the release number.
func (c *Client) Version(ctx context.Context) (Version, error) {
	invocation, _, err := c.invocation()
	if err != nil {
		return Version{}, err
	}
	command := invocation + " -version"
	var stdout, stderr bytes.Buffer
	res, err := c.exec.Execute(ctx, procexec.Request{Command: command, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		return Version{}, fmt.Errorf("ffprobe version: %w", err)
	}
	if res.ExitCode != 0 {
		return Version{}, &ExecutionError{ExitCode: res.ExitCode, Command: command, Stderr: strings.TrimSpace(stderr.String())}
	}
	return ParseVersion(stdout.String())
}
