// Package series turns raw (term, score, course) rating points into chart
// series aligned on one shared term axis.
package series

import (
	"encoding/json"
	"errors"

	"github.com/mind-engage/courseratings/internal/term"
)

// AverageCourse is the reserved course name of a widget that shows the
// reference table alone.
const AverageCourse = "AVERAGE_SCORE"

// Scale bounds for scores.
const (
	MinScore = 1
	MaxScore = 7
)

var (
	ErrNoData    = errors.New("no rating data")
	ErrEmptyAxis = errors.New("term axis is empty")
)

// DataPoint is one course's score for one term.
type DataPoint struct {
	Term   term.Term
	Score  float64
	Course string
}

// Value is a score slot on the axis; Valid is false where the series has no
// data for that term.
type Value struct {
	Score float64
	Valid bool
}

// NoValue marks an axis position without data.
var NoValue = Value{}

func Some(v float64) Value { return Value{Score: v, Valid: true} }

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Score)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = NoValue
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Series is one plotted line.
type Series struct {
	Name      string  `json:"name"`
	Data      []Value `json:"data"`
	Color     string  `json:"color"`
	Visible   bool    `json:"visible"`
	Reference bool    `json:"reference,omitempty"`
	Dashed    bool    `json:"dashed,omitempty"`
	Markers   bool    `json:"markers"`
}

// Chart is the Builder output for one widget: the shared axis, the series
// (course series first, reference series last) and the terms each course
// contributed.
type Chart struct {
	Axis   []term.Term
	Series []*Series
	Spans  map[string][]term.Term
}

// Reference returns the reference series.
func (c *Chart) Reference() *Series {
	for _, s := range c.Series {
		if s.Reference {
			return s
		}
	}
	return nil
}

// Find returns the series called name.
func (c *Chart) Find(name string) (*Series, bool) {
	for _, s := range c.Series {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Categories formats the axis for display.
func (c *Chart) Categories() []string {
	out := make([]string, len(c.Axis))
	for i, t := range c.Axis {
		out[i] = t.String()
	}
	return out
}
