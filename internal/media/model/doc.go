// Package model holds the media types derived from ffprobe output.
//
// The types are decoupled from the ffprobe wire format: numbers are typed,
// absent values are nil pointers and streams are split by kind. Video
// streams carry a VideoFormat decoded from pix_fmt, color_range and
// field_order.
package model
