package model

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Longer alternatives come first so yuvj420p is read as YUVJ + 420.
var pixelFormatPattern = regexp.MustCompile(`(?i)^(ABGR|ARGB|BGRA|RGBA|BGR|GBR|GRAY|RGB|UYVY|YUVA|YUVJ|YUYV|YUV|YA)(\d{1,3})?(.*)$`)

// Casers are stateful, so one is created per call.
func upperText(s string) string {
	return cases.Upper(language.Und).String(s)
}

// VideoFormat describes the sample layout of a video stream.
type VideoFormat struct {
	PixelFormat       string `json:"pixel_format,omitempty"`
	ColorSpace        string `json:"color_space,omitempty"`
	ChromaSubsampling string `json:"chroma_subsampling,omitempty"`
	ColorRange        string `json:"color_range,omitempty"`
	// Progressive is nil when field_order is missing or unrecognised.
	Progressive *bool `json:"progressive,omitempty"`
}

// ParseVideoFormat derives a VideoFormat from ffprobe's pix_fmt, color_range
// and field_order values.
func ParseVideoFormat(pixelFormat, colorRange, fieldOrder string) VideoFormat {
	format := VideoFormat{PixelFormat: pixelFormat}

	switch strings.ToLower(colorRange) {
	case "tv", "pc":
		format.ColorRange = colorRange
	}

	if match := pixelFormatPattern.FindStringSubmatch(pixelFormat); match != nil {
		format.ColorSpace = colorSpaceFamily(upperText(match[1]))
		switch match[2] {
		case "420", "422", "440", "444":
			format.ChromaSubsampling = match[2]
		}
	}

	if fieldOrder != "" {
		switch upperText(fieldOrder[:1]) {
		case "P":
			format.Progressive = boolPtr(true)
		case "I", "B", "T":
			format.Progressive = boolPtr(false)
		}
	}
	return format
}

func colorSpaceFamily(set string) string {
	switch set {
	case "YUV", "YUVJ", "YUVY", "YUYV":
		return "YUV"
	case "BGR", "GBR", "RGB":
		return "RGB"
	case "YUVA":
		return "YUVA"
	case "ABGR", "ARGB", "BGRA", "RGBA":
		return "RGBA"
	default:
		return ""
	}
}

// FieldType is "p", "i" or "?".
func (f VideoFormat) FieldType() string {
	switch {
	case f.Progressive == nil:
		return "?"
	case *f.Progressive:
		return "p"
	default:
		return "i"
	}
}

// ColorSpaceFull joins colour space and chroma subsampling, e.g. "YUV420".
func (f VideoFormat) ColorSpaceFull() string {
	return f.ColorSpace + f.ChromaSubsampling
}

// String renders "yuv420p (tv)" style text.
func (f VideoFormat) String() string {
	if f.ColorRange == "" {
		return f.PixelFormat
	}
	return f.PixelFormat + " (" + f.ColorRange + ")"
}

func boolPtr(v bool) *bool {
	return &v
}
