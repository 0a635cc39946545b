package ffprobe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bitrateviewer/internal/media/model"
)

// ParseResult decodes a metadata JSON document.
func ParseResult(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, &ParseError{Text: string(data), Err: err}
	}
	result.raw = append([]byte(nil), data...)
	return result, nil
}

// ParseContainer decodes a metadata JSON document into the media model.
func ParseContainer(data []byte) (*model.Container, error) {
	result, err := ParseResult(data)
	if err != nil {
		return nil, err
	}
	return result.Container()
}

// Container converts the wire result into the media model. Video streams
// whose codec is mjpeg (attached cover art) are left out of Video.
func (r Result) Container() (*model.Container, error) {
	c := &model.Container{
		FormatName: r.Format.FormatName,
		BitRate:    r.Format.BitRate.Int(),
		Size:       r.Format.Size.Int(),
		Duration:   r.Format.Duration.Float(),
		StartTime:  r.Format.StartTime.Float(),
		Streams:    make([]model.Stream, 0, len(r.Streams)),
	}
	if n := r.Format.NBStreams.Int(); n != nil {
		count := int(*n)
		c.StreamCount = &count
	}

	for _, s := range r.Streams {
		base, err := s.base()
		if err != nil {
			return nil, err
		}
		c.Streams = append(c.Streams, base)
		switch base.Kind {
		case model.KindVideo:
			if strings.EqualFold(s.CodecName, "mjpeg") {
				continue
			}
			c.Video = append(c.Video, s.video(base))
		case model.KindAudio:
			c.Audio = append(c.Audio, s.audio(base))
		case model.KindSubtitle:
			c.Subtitle = append(c.Subtitle, model.SubtitleStream{Stream: base})
		}
	}

	if c.Duration == nil && len(c.Streams) > 0 {
		first := c.Streams[0]
		if first.Duration != nil {
			total := *first.Duration
			if first.StartTime != nil {
				total += *first.StartTime
			}
			c.Duration = &total
		}
	}
	return c, nil
}

func (s Stream) base() (model.Stream, error) {
	out := model.Stream{
		Kind:           model.KindOf(s.CodecType),
		Index:          s.Index,
		ID:             s.ID,
		CodecName:      s.CodecName,
		CodecTag:       s.CodecTag,
		CodecTagString: s.CodecTagString,
		Duration:       s.Duration.Float(),
		DurationTS:     s.DurationTS.Int(),
		StartTime:      s.StartTime.Float(),
		StartPTS:       s.StartPTS.Int(),
	}
	if out.Duration == nil {
		if seconds, ok := parseTagDuration(s.Tags.Duration); ok {
			out.Duration = &seconds
		}
	}
	var err error
	if out.FrameRateAvg, err = optionalRational(s.AvgFrameRate); err != nil {
		return model.Stream{}, fmt.Errorf("stream %d avg_frame_rate: %w", s.Index, err)
	}
	if out.FrameRateReal, err = optionalRational(s.RFrameRate); err != nil {
		return model.Stream{}, fmt.Errorf("stream %d r_frame_rate: %w", s.Index, err)
	}
	if out.TimeBase, err = optionalRational(s.TimeBase); err != nil {
		return model.Stream{}, fmt.Errorf("stream %d time_base: %w", s.Index, err)
	}
	return out, nil
}

func (s Stream) video(base model.Stream) model.VideoStream {
	v := model.VideoStream{
		Stream:  base,
		BitRate: s.BitRate.Int(),
		Profile: s.Profile,
		IsAVC:   s.IsAVC.Bool(),
		Format:  model.ParseVideoFormat(s.PixFmt, s.ColorRange, s.FieldOrder),
	}
	width, height := s.Width.Int(), s.Height.Int()
	if width != nil && height != nil {
		v.Resolution = &model.Resolution{Width: int(*width), Height: int(*height)}
	}
	return v
}

func (s Stream) audio(base model.Stream) model.AudioStream {
	a := model.AudioStream{
		Stream:        base,
		BitRate:       s.BitRate.Int(),
		ChannelLayout: s.ChannelLayout,
		SampleRate:    s.SampleRate.Int(),
	}
	if n := s.Channels.Int(); n != nil {
		channels := int(*n)
		a.Channels = &channels
	}
	return a
}

func optionalRational(text string) (*model.Rational, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	r, err := model.ParseRational(text)
	if err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	return &r, nil
}

var tagDurationPattern = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2}(?:\.\d+)?)$`)

// parseTagDuration reads Matroska DURATION tags such as "00:42:17.125000000".
func parseTagDuration(text string) (float64, bool) {
	match := tagDurationPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}
