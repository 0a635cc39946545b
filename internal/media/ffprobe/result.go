package ffprobe

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Result represents the parsed output from a metadata probe.
type Result struct {
	Streams []Stream    `json:"streams"`
	Format  Format      `json:"format"`
	Error   *ProbeError `json:"error"`
	raw     []byte
}

// ProbeError is the section -show_error emits when ffprobe fails.
type ProbeError struct {
	Code   int    `json:"code"`
	String string `json:"string"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index          int        `json:"index"`
	ID             string     `json:"id"`
	CodecName      string     `json:"codec_name"`
	CodecType      string     `json:"codec_type"`
	CodecTag       string     `json:"codec_tag"`
	CodecTagString string     `json:"codec_tag_string"`
	Profile        string     `json:"profile"`
	Width          Number     `json:"width"`
	Height         Number     `json:"height"`
	PixFmt         string     `json:"pix_fmt"`
	ColorRange     string     `json:"color_range"`
	FieldOrder     string     `json:"field_order"`
	IsAVC          Truthy     `json:"is_avc"`
	AvgFrameRate   string     `json:"avg_frame_rate"`
	RFrameRate     string     `json:"r_frame_rate"`
	TimeBase       string     `json:"time_base"`
	StartPTS       Number     `json:"start_pts"`
	StartTime      Number     `json:"start_time"`
	DurationTS     Number     `json:"duration_ts"`
	Duration       Number     `json:"duration"`
	BitRate        Number     `json:"bit_rate"`
	SampleRate     Number     `json:"sample_rate"`
	Channels       Number     `json:"channels"`
	ChannelLayout  string     `json:"channel_layout"`
	Tags           StreamTags `json:"tags"`
}

// StreamTags holds the tags requested with -show_entries stream_tags=duration.
// Matroska stores per-stream durations as a DURATION tag.
type StreamTags struct {
	Duration string `json:"DURATION"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  Number `json:"nb_streams"`
	FormatName string `json:"format_name"`
	StartTime  Number `json:"start_time"`
	Duration   Number `json:"duration"`
	Size       Number `json:"size"`
	BitRate    Number `json:"bit_rate"`
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	if !r.Format.Duration.Valid {
		return 0
	}
	return r.Format.Duration.Value
}

// Number is a JSON number that ffprobe may also print as a string. Empty
// strings, "N/A" and unparsable text leave it invalid.
type Number struct {
	Value float64
	Valid bool
	text  string
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	text = strings.TrimSpace(text)
	value := parseFloat(text)
	if math.IsNaN(value) || math.IsInf(value, 0) || text == "" {
		return nil
	}
	n.Value, n.Valid, n.text = value, true, text
	return nil
}

// Float returns a pointer to the value, or nil when invalid.
func (n Number) Float() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Int returns the value as an integer, parsing the original text first so
// large integers keep full precision.
func (n Number) Int() *int64 {
	if !n.Valid {
		return nil
	}
	if v, err := strconv.ParseInt(n.text, 10, 64); err == nil {
		return &v
	}
	v := int64(n.Value)
	return &v
}

// Truthy decodes loosely typed flags: false and null are false, numbers are
// true when non-zero, strings are parsed as booleans and otherwise true when
// non-empty, and any other JSON value is true. Parsing strings first means
// "false" and "0" decode as false, unlike a plain non-empty check.
type Truthy struct {
	Value bool
	Valid bool
}

func (t *Truthy) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Valid = true
	switch v := raw.(type) {
	case nil:
		t.Value = false
	case bool:
		t.Value = v
	case float64:
		t.Value = v != 0
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			t.Value = parsed
		} else {
			t.Value = v != ""
		}
	default:
		t.Value = true
	}
	return nil
}

// Bool returns a pointer to the value, or nil when the key was absent.
func (t Truthy) Bool() *bool {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
