package bitrate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPlotView is returned for plot views that are recognised but
// not implemented.
var ErrUnsupportedPlotView = errors.New("plot view not supported")

// PlotView selects what the y axis of a plot shows.
type PlotView string

const (
	// PlotFrame plots each packet's size in kilobytes.
	PlotFrame PlotView = "frame"
	// PlotSecond plots the interval bitrate of each packet in kb/s.
	PlotSecond PlotView = "second"
	// PlotGOP is per-GOP bitrate; it is not supported.
	PlotGOP PlotView = "gop"
)

// ParsePlotView accepts frame, second or gop in any case. gop parses but
// yields ErrUnsupportedPlotView when points are requested.
func ParsePlotView(value string) (PlotView, error) {
	switch view := PlotView(strings.ToLower(strings.TrimSpace(value))); view {
	case PlotFrame, PlotSecond, PlotGOP:
		return view, nil
	default:
		return "", fmt.Errorf("unknown plot view %q (want frame, second or gop)", value)
	}
}

// Unit is the y axis unit label.
func (v PlotView) Unit() string {
	switch v {
	case PlotFrame:
		return "kb"
	case PlotSecond:
		return "kb/s"
	case PlotGOP:
		return "kb/GOP"
	default:
		return ""
	}
}

// Title is the y axis legend.
func (v PlotView) Title() string {
	switch v {
	case PlotFrame:
		return "Frame size [kb]"
	case PlotSecond, PlotGOP:
		return "Bit rate [" + v.Unit() + "]"
	default:
		return ""
	}
}

// Point is one plot sample. X is seconds since the start time.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlotPoints renders the series for view. interval and start are the
// aggregation parameters; start is also subtracted from each packet's PTS.
func (s *Series) PlotPoints(view PlotView, interval, start float64) ([]Point, error) {
	switch view {
	case PlotFrame:
		s.mu.Lock()
		defer s.mu.Unlock()
		points := make([]Point, len(s.packets))
		for i, p := range s.packets {
			points[i] = Point{X: p.PTS - start, Y: float64(p.Size) / 1000}
		}
		return points, nil
	case PlotSecond:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.refresh(interval, start)
		points := make([]Point, len(s.packets))
		for i, p := range s.packets {
			points[i] = Point{X: p.PTS - start, Y: s.bitrates[i] / 1000}
		}
		return points, nil
	case PlotGOP:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlotView, view)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlotView, string(view))
	}
}
