// Package visibility keeps a chart's visible term window in step with which
// series are shown.
package visibility

import (
	"fmt"

	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
)

// Windows spanning at most smallSpan terms are widened by buffer terms on
// each side of their centre.
const (
	smallSpan = 4
	buffer    = 3 // ceil(5/2)
)

// Range is an inclusive window of axis indices. The zero Range is unbounded.
type Range struct {
	Min, Max int
	Bounded  bool
}

var Unbounded = Range{}

func (r Range) String() string {
	if !r.Bounded {
		return "unbounded"
	}
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}

// Contains reports whether axis index i is inside the window.
func (r Range) Contains(i int) bool {
	return !r.Bounded || (i >= r.Min && i <= r.Max)
}

// Target is the chart collaborator the controller drives.
type Target interface {
	SetExtremes(r Range, redraw bool)
}

// IndexNotFoundError means a visible term is missing from the axis. It
// signals a bug in how spans were recorded, not bad input.
type IndexNotFoundError struct {
	Term term.Term
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("term %s not on axis", e.Term)
}

// Controller recomputes the visible window of one chart.
type Controller struct {
	chart  *series.Chart
	index  map[term.Term]int
	target Target
	rng    Range
}

func NewController(c *series.Chart, target Target) *Controller {
	idx := make(map[term.Term]int, len(c.Axis))
	for i, t := range c.Axis {
		idx[t] = i
	}
	return &Controller{chart: c, index: idx, target: target}
}

// Range returns the window computed by the last OnVisibilityChanged.
func (c *Controller) Range() Range { return c.rng }

// OnVisibilityChanged must be called after a series' Visible flag flips.
// It hides the reference series when no course series is visible, derives
// the window from the terms the visible courses own and hands it to the
// target with a redraw request.
func (c *Controller) OnVisibilityChanged() error {
	visible := 0
	var ref *series.Series
	for _, s := range c.chart.Series {
		if s.Reference {
			ref = s
			continue
		}
		if s.Visible {
			visible++
		}
	}
	if visible == 0 && ref != nil && len(c.chart.Series) > 1 {
		ref.Visible = false
	}

	rng, err := c.compute()
	if err != nil {
		return err
	}
	c.rng = rng
	if c.target != nil {
		c.target.SetExtremes(rng, true)
	}
	return nil
}

func (c *Controller) compute() (Range, error) {
	seen := map[term.Term]bool{}
	var union []term.Term
	for _, s := range c.chart.Series {
		if !s.Visible || s.Reference {
			continue
		}
		for _, t := range c.chart.Spans[s.Name] {
			if !seen[t] {
				seen[t] = true
				union = append(union, t)
			}
		}
	}
	if len(union) == 0 {
		return Unbounded, nil
	}
	term.Sort(union)

	first, last := union[0], union[len(union)-1]
	lo, ok := c.index[first]
	if !ok {
		return Unbounded, &IndexNotFoundError{Term: first}
	}
	hi, ok := c.index[last]
	if !ok {
		return Unbounded, &IndexNotFoundError{Term: last}
	}

	if hi-lo+1 <= smallSpan {
		centre := (lo + hi) / 2
		lo = max(centre-buffer, 0)
		hi = min(centre+buffer, len(c.chart.Axis)-1)
	}
	return Range{Min: lo, Max: hi, Bounded: true}, nil
}
