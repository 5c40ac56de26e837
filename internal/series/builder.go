package series

import (
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/term"
)

// DefaultPalette is the color cycle course series are painted with.
var DefaultPalette = []string{
	"#7cb5ec", "#434348", "#90ed7d", "#f7a35c", "#8085e9",
	"#f15c80", "#e4d354", "#2b908f", "#f45b5b", "#91e8e1",
}

const (
	referenceColor = "black"
	defaultRefName = "Gjennomsnitt på Ifi"
)

// Builder assembles charts. Course colors are assigned on first encounter
// and stay fixed for the lifetime of the Builder; a Builder is not safe for
// concurrent use.
type Builder struct {
	table   *reference.Table
	palette []string
	refName string

	colors map[string]string
	next   int
}

type Option func(*Builder)

// WithPalette overrides DefaultPalette.
func WithPalette(p []string) Option {
	return func(b *Builder) {
		if len(p) > 0 {
			b.palette = p
		}
	}
}

// WithReferenceName sets the display name of the reference series.
func WithReferenceName(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.refName = name
		}
	}
}

func NewBuilder(table *reference.Table, opts ...Option) *Builder {
	b := &Builder{
		table:   table,
		palette: DefaultPalette,
		refName: defaultRefName,
		colors:  map[string]string{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Color returns the color assigned to course, assigning the next palette
// entry if the course is new.
func (b *Builder) Color(course string) string {
	if c, ok := b.colors[course]; ok {
		return c
	}
	c := b.palette[b.next%len(b.palette)]
	b.next++
	b.colors[course] = c
	return c
}

// Build aligns points into one series per course plus the reference series.
// A point naming AverageCourse switches to BuildReference.
func (b *Builder) Build(points []DataPoint) (*Chart, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	var order []string
	byCourse := map[string][]DataPoint{}
	seen := map[term.Term]bool{}
	var axis []term.Term
	for _, p := range points {
		if p.Course == AverageCourse {
			return b.BuildReference()
		}
		if _, ok := byCourse[p.Course]; !ok {
			order = append(order, p.Course)
		}
		byCourse[p.Course] = append(byCourse[p.Course], p)
		if !seen[p.Term] {
			seen[p.Term] = true
			axis = append(axis, p.Term)
		}
	}
	if len(axis) == 0 {
		return nil, ErrEmptyAxis
	}
	term.Sort(axis)

	index := make(map[term.Term]int, len(axis))
	for i, t := range axis {
		index[t] = i
	}

	c := &Chart{Axis: axis, Spans: make(map[string][]term.Term, len(order))}
	for _, course := range order {
		s := &Series{
			Name:    course,
			Data:    make([]Value, len(axis)),
			Color:   b.Color(course),
			Visible: true,
			Markers: true,
		}
		owned := map[term.Term]bool{}
		for _, p := range byCourse[course] {
			s.Data[index[p.Term]] = Some(p.Score)
			owned[p.Term] = true
		}
		span := make([]term.Term, 0, len(owned))
		for t := range owned {
			span = append(span, t)
		}
		term.Sort(span)
		c.Spans[course] = span
		c.Series = append(c.Series, s)
	}

	ref := b.referenceSeries(axis)
	c.Series = append(c.Series, ref)
	return c, nil
}

// BuildReference charts the reference table on its own: the axis is every
// term in the table and the reference series is the only, visible, series.
func (b *Builder) BuildReference() (*Chart, error) {
	axis := b.table.Terms()
	if len(axis) == 0 {
		return nil, ErrEmptyAxis
	}
	ref := b.referenceSeries(axis)
	ref.Visible = true
	return &Chart{Axis: axis, Series: []*Series{ref}, Spans: map[string][]term.Term{}}, nil
}

func (b *Builder) referenceSeries(axis []term.Term) *Series {
	s := &Series{
		Name:      b.refName,
		Data:      make([]Value, len(axis)),
		Color:     referenceColor,
		Reference: true,
		Dashed:    true,
	}
	for i, t := range axis {
		if v, ok := b.table.Lookup(t); ok {
			s.Data[i] = Some(v)
		}
	}
	return s
}
