package model

// Container is the format-level view of a probed file.
type Container struct {
	FormatName  string           `json:"format_name,omitempty"`
	BitRate     *int64           `json:"bit_rate,omitempty"`
	Size        *int64           `json:"size,omitempty"`
	Duration    *float64         `json:"duration,omitempty"`
	StartTime   *float64         `json:"start_time,omitempty"`
	StreamCount *int             `json:"nb_streams,omitempty"`
	Streams     []Stream         `json:"streams"`
	Video       []VideoStream    `json:"video"`
	Audio       []AudioStream    `json:"audio"`
	Subtitle    []SubtitleStream `json:"subtitle"`
}

// DurationSeconds returns the duration or 0 when unknown.
func (c *Container) DurationSeconds() float64 {
	if c == nil || c.Duration == nil {
		return 0
	}
	return *c.Duration
}

// StartSeconds returns the start time or 0 when unknown.
func (c *Container) StartSeconds() float64 {
	if c == nil || c.StartTime == nil {
		return 0
	}
	return *c.StartTime
}

// VideoByIndex returns the n-th video stream (0-based, cover art excluded).
func (c *Container) VideoByIndex(n int) (VideoStream, bool) {
	if c == nil || n < 0 || n >= len(c.Video) {
		return VideoStream{}, false
	}
	return c.Video[n], true
}
