package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrRationalFormat reports text that is not "<digits>/<digits>".
var ErrRationalFormat = errors.New("invalid rational")

var rationalPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)

// Rational is an ffprobe "num/den" value such as a frame rate or time base.
// Num or Den is nil when the part does not fit an int64.
type Rational struct {
	Raw string
	Num *int64
	Den *int64
}

// ParseRational parses text of the form "30000/1001".
func ParseRational(text string) (Rational, error) {
	match := rationalPattern.FindStringSubmatch(text)
	if match == nil {
		return Rational{}, fmt.Errorf("%w: %q", ErrRationalFormat, text)
	}
	r := Rational{Raw: text}
	if n, err := strconv.ParseInt(match[1], 10, 64); err == nil {
		r.Num = &n
	}
	if d, err := strconv.ParseInt(match[2], 10, 64); err == nil {
		r.Den = &d
	}
	return r, nil
}

// Float returns Num/Den. ok is false when either part is missing or the
// denominator is zero (ffprobe reports "0/0" for unknown rates).
func (r Rational) Float() (float64, bool) {
	if r.Num == nil || r.Den == nil || *r.Den == 0 {
		return 0, false
	}
	return float64(*r.Num) / float64(*r.Den), true
}

// Number formats the value with three decimals, or "" when undefined.
func (r Rational) Number() string {
	value, ok := r.Float()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func (r Rational) String() string {
	return r.Raw
}

func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Raw)
}
