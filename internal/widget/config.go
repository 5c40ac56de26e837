package widget

import (
	"math"

	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/visibility"
)

// Config is everything a chart renderer needs to draw a widget.
type Config struct {
	ID         string          `json:"id"`
	Course     string          `json:"course"`
	Title      string          `json:"title,omitempty"`
	Categories []string        `json:"categories"`
	YAxis      YAxis           `json:"y_axis"`
	Series     []series.Series `json:"series"`
	Legend     bool            `json:"legend"`
	// Extremes is nil when the whole axis is shown.
	Extremes *Extremes `json:"extremes"`
}

type YAxis struct {
	Min    int      `json:"min"`
	Max    int      `json:"max"`
	Labels []string `json:"labels"`
}

type Extremes struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Range converts the extremes back to a visibility.Range.
func (c Config) Range() visibility.Range {
	if c.Extremes == nil {
		return visibility.Unbounded
	}
	return visibility.Range{Min: c.Extremes.Min, Max: c.Extremes.Max, Bounded: true}
}

// ScaleLabel maps a tick value on the score axis to its ordinal label.
func (c Config) ScaleLabel(v float64) string {
	i := int(math.Round(v)) - c.YAxis.Min
	if i < 0 || i >= len(c.YAxis.Labels) {
		return ""
	}
	return c.YAxis.Labels[i]
}

// VisibleSeries returns the series currently shown.
func (c Config) VisibleSeries() []series.Series {
	var out []series.Series
	for _, s := range c.Series {
		if s.Visible {
			out = append(out, s)
		}
	}
	return out
}
