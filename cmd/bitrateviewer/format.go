package main

import (
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// formatKbps renders a bits per second value as kb/s, or "-" when undefined.
func formatKbps(bps float64) string {
	if math.IsNaN(bps) || math.IsInf(bps, 0) {
		return "-"
	}
	return humanize.CommafWithDigits(bps/1000, 1) + " kb/s"
}

func formatBytes(size *int64) string {
	if size == nil || *size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(*size))
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func formatSeconds(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	return formatClock(*seconds)
}

// formatClock renders seconds as h:mm:ss.mmm.
func formatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "-"
	}
	negative := seconds < 0
	d := time.Duration(math.Abs(seconds) * float64(time.Second)).Round(time.Millisecond)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := float64(d%time.Minute) / float64(time.Second)
	out := strconv.Itoa(h) + ":" + pad2(m) + ":" + padSeconds(s)
	if negative {
		return "-" + out
	}
	return out
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

func padSeconds(s float64) string {
	text := strconv.FormatFloat(s, 'f', 3, 64)
	if s < 10 {
		return "0" + text
	}
	return text
}

// optionalNumber renders a nullable float without trailing zeros.
func optionalNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// jsonFloat keeps NaN out of JSON documents.
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func derefNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
