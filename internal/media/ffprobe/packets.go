package ffprobe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/procexec"
)

// Packet is one record of
//
//	packet,<pts_time>,<dts_time>,<duration_time>,<size>,<flags>
//
// Absent or "N/A" values are nil.
type Packet struct {
	PTSTime      *float64 `json:"pts_time"`
	DTSTime      *float64 `json:"dts_time"`
	DurationTime *float64 `json:"duration_time"`
	Size         *int64   `json:"size"`
	Flags        string   `json:"flags"`
}

// Keyframe reports whether the K flag is set.
func (p Packet) Keyframe() bool {
	return strings.Contains(p.Flags, "K")
}

const packetTag = "packet"

func packetArgs(streamIndex int) []string {
	return []string{
		"-print_format", "csv",
		"-loglevel", "fatal",
		"-show_error",
		"-select_streams", "v:" + strconv.Itoa(streamIndex),
		"-show_entries", "packet=dts_time,duration_time,pts_time,size,flags",
	}
}

// ParsePacketLine decodes one CSV line. The first field must be "packet"
// (compared case-insensitively); numeric fields that do not parse are left nil
// and negative durations and sizes are clamped to zero.
func ParsePacketLine(line string) (Packet, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	record, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, &ParseError{Text: line, Err: errors.New("empty line")}
		}
		return Packet{}, &ParseError{Text: line, Err: err}
	}
	if len(record) == 0 || !strings.EqualFold(strings.TrimSpace(record[0]), packetTag) {
		return Packet{}, &ParseError{Text: line, Err: errors.New("not a packet record")}
	}

	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	p := Packet{
		PTSTime:      optionalFloat(field(1)),
		DTSTime:      optionalFloat(field(2)),
		DurationTime: optionalFloat(field(3)),
		Size:         optionalInt(field(4)),
		Flags:        field(5),
	}
	if p.DurationTime != nil && *p.DurationTime < 0 {
		*p.DurationTime = 0
	}
	if p.Size != nil && *p.Size < 0 {
		*p.Size = 0
	}
	return p, nil
}

func optionalFloat(text string) *float64 {
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optionalInt(text string) *int64 {
	if text == "" {
		return nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Packets streams the packets of the streamIndex-th video stream of path in
// the order ffprobe emits them (decoding order). Both channels are closed
// when the probe finishes; at most one error is sent. A parse failure stops
// the probe. Callers must drain the packet channel or cancel ctx.
func (c *Client) Packets(ctx context.Context, path string, streamIndex int) (<-chan Packet, <-chan error) {
	packets := make(chan Packet)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(packets)
		if err := c.streamPackets(ctx, path, streamIndex, packets); err != nil {
			errs <- err
		}
	}()
	return packets, errs
}

// CollectPackets gathers every packet of one video stream.
func (c *Client) CollectPackets(ctx context.Context, path string, streamIndex int) ([]Packet, error) {
	packets, errs := c.Packets(ctx, path, streamIndex)
	var out []Packet
	for p := range packets {
		out = append(out, p)
	}
	if err := <-errs; err != nil {
		return out, err
	}
	return out, nil
}

type executeOutcome struct {
	result procexec.Result
	err    error
}

func (c *Client) streamPackets(ctx context.Context, path string, streamIndex int, out chan<- Packet) error {
	if streamIndex < 0 {
		return fmt.Errorf("ffprobe packets: invalid stream index %d", streamIndex)
	}
	command, err := c.commandLine(path, packetArgs(streamIndex)...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := newLineQueue()
	var stderr bytes.Buffer
	done := make(chan executeOutcome, 1)
	go func() {
		res, err := c.exec.Execute(ctx, procexec.Request{
			Command:     command,
			StdoutLines: queue.In(),
			Stderr:      &stderr,
		})
		done <- executeOutcome{result: res, err: err}
	}()

	var (
		streamErr error
		count     int
	)
	for line := range queue.Out() {
		if streamErr != nil || strings.TrimSpace(line) == "" {
			continue
		}
		packet, err := ParsePacketLine(line)
		if err != nil {
			streamErr = err
			cancel()
			continue
		}
		select {
		case out <- packet:
			count++
		case <-ctx.Done():
			streamErr = ctx.Err()
		}
	}
	outcome := <-done

	if streamErr != nil {
		return fmt.Errorf("ffprobe packets %s: %w", path, streamErr)
	}
	if outcome.err != nil {
		return fmt.Errorf("ffprobe packets %s: %w", path, outcome.err)
	}
	if outcome.result.ExitCode != 0 {
		return &ExecutionError{
			ExitCode: outcome.result.ExitCode,
			Command:  command,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	c.logger.Debug("packets read",
		logging.String(logging.FieldFile, path),
		logging.Int("stream", streamIndex),
		logging.Int("packets", count),
	)
	return nil
}
