package model

import (
	"strconv"
	"strings"
)

// Kind tags a stream by its ffprobe codec_type.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
	KindBase     Kind = "other"
)

// KindOf maps a codec_type value onto a Kind, ignoring case.
func KindOf(codecType string) Kind {
	switch strings.ToLower(strings.TrimSpace(codecType)) {
	case "video":
		return KindVideo
	case "audio":
		return KindAudio
	case "subtitle":
		return KindSubtitle
	default:
		return KindBase
	}
}

// Stream holds the fields every stream kind shares.
type Stream struct {
	Kind           Kind      `json:"kind"`
	Index          int       `json:"index"`
	ID             string    `json:"id,omitempty"`
	CodecName      string    `json:"codec_name,omitempty"`
	CodecTag       string    `json:"codec_tag,omitempty"`
	CodecTagString string    `json:"codec_tag_string,omitempty"`
	Duration       *float64  `json:"duration,omitempty"`
	DurationTS     *int64    `json:"duration_ts,omitempty"`
	StartTime      *float64  `json:"start_time,omitempty"`
	StartPTS       *int64    `json:"start_pts,omitempty"`
	FrameRateAvg   *Rational `json:"avg_frame_rate,omitempty"`
	FrameRateReal  *Rational `json:"r_frame_rate,omitempty"`
	TimeBase       *Rational `json:"time_base,omitempty"`
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// VideoStream is a video stream other than attached cover art.
type VideoStream struct {
	Stream
	BitRate    *int64      `json:"bit_rate,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
	Profile    string      `json:"profile,omitempty"`
	IsAVC      *bool       `json:"is_avc,omitempty"`
	Format     VideoFormat `json:"format"`
}

// FrameRate prefers the average frame rate and falls back to r_frame_rate.
func (v VideoStream) FrameRate() (float64, bool) {
	for _, rate := range []*Rational{v.FrameRateAvg, v.FrameRateReal} {
		if rate == nil {
			continue
		}
		if value, ok := rate.Float(); ok {
			return value, true
		}
	}
	return 0, false
}

// ShortDescription renders e.g. "1080-23.976p, YUV420, TV".
func (v VideoStream) ShortDescription() string {
	var head strings.Builder
	if v.Resolution != nil {
		head.WriteString(strconv.Itoa(v.Resolution.Height))
	}
	if v.FrameRateAvg != nil {
		if number := v.FrameRateAvg.Number(); number != "" {
			head.WriteString("-" + number)
		}
	}
	head.WriteString(v.Format.FieldType())

	parts := []string{head.String()}
	if cs := v.Format.ColorSpaceFull(); cs != "" {
		parts = append(parts, cs)
	}
	if v.Format.ColorRange != "" {
		parts = append(parts, upperText(v.Format.ColorRange))
	}
	return strings.Join(parts, ", ")
}

// Description is the long form: "1920x1080-23.976p, yuv420p (tv), 8000000".
func (v VideoStream) Description() string {
	var head strings.Builder
	if v.Resolution != nil {
		head.WriteString(v.Resolution.String())
	}
	if v.FrameRateAvg != nil {
		if number := v.FrameRateAvg.Number(); number != "" {
			head.WriteString("-" + number)
		}
	}
	head.WriteString(v.Format.FieldType())

	parts := []string{head.String()}
	if format := v.Format.String(); format != "" {
		parts = append(parts, format)
	}
	if v.BitRate != nil {
		parts = append(parts, strconv.FormatInt(*v.BitRate, 10))
	}
	return strings.Join(parts, ", ")
}

// AudioStream carries audio-specific fields.
type AudioStream struct {
	Stream
	BitRate       *int64 `json:"bit_rate,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	Channels      *int   `json:"channels,omitempty"`
	SampleRate    *int64 `json:"sample_rate,omitempty"`
}

// Description renders "aac, stereo, 128000, 48000".
func (a AudioStream) Description() string {
	var parts []string
	if a.CodecName != "" {
		parts = append(parts, a.CodecName)
	}
	if a.ChannelLayout != "" {
		parts = append(parts, a.ChannelLayout)
	}
	if a.BitRate != nil {
		parts = append(parts, strconv.FormatInt(*a.BitRate, 10))
	}
	if a.SampleRate != nil {
		parts = append(parts, strconv.FormatInt(*a.SampleRate, 10))
	}
	return strings.Join(parts, ", ")
}

// SubtitleStream has no fields beyond the shared ones.
type SubtitleStream struct {
	Stream
}
