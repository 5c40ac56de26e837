// Package render draws a widget configuration with go-chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/widget"
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

var ErrUnknownFormat = errors.New("unknown chart format")

// ParseFormat accepts "png" or "svg" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case PNG, SVG:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// ContentType is the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

type Options struct {
	Width   int
	Height  int
	Metrics *metrics.Metrics
}

const (
	defaultWidth  = 800
	defaultHeight = 400
)

var referenceDash = []float64{2, 4}

// Render writes cfg as an image. Only the terms inside cfg.Extremes are
// drawn; gaps in a series break its line.
func Render(w io.Writer, cfg widget.Config, f Format, opts Options) error {
	start := time.Now()
	c := Build(cfg, opts)

	var provider chart.RendererProvider
	switch f {
	case PNG:
		provider = chart.PNG
	case SVG:
		provider = chart.SVG
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
	if err := c.Render(provider, w); err != nil {
		return fmt.Errorf("render %s: %w", cfg.Course, err)
	}
	opts.Metrics.Rendered(string(f), time.Since(start))
	return nil
}

// Build turns a widget configuration into a go-chart chart.
func Build(cfg widget.Config, opts Options) *chart.Chart {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	lo, hi := 0, len(cfg.Categories)-1
	if cfg.Extremes != nil {
		lo, hi = cfg.Extremes.Min, cfg.Extremes.Max
	}
	if hi < lo {
		hi = lo
	}

	c := &chart.Chart{
		Title:  cfg.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: float64(lo) - 0.5, Max: float64(hi) + 0.5},
			Ticks: xTicks(cfg.Categories, lo, hi),
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: float64(cfg.YAxis.Min), Max: float64(cfg.YAxis.Max)},
			Ticks: yTicks(cfg),
		},
	}

	for _, s := range cfg.Series {
		if !s.Visible {
			continue
		}
		style := chart.Style{
			StrokeColor: drawing.ParseColor(s.Color),
			StrokeWidth: 2,
		}
		if s.Reference {
			style.StrokeColor = drawing.ColorBlack
			style.StrokeDashArray = referenceDash
		}
		if s.Markers {
			style.DotColor = style.StrokeColor
			style.DotWidth = 3
		}
		name := s.Name
		run := chart.ContinuousSeries{}
		flush := func() {
			if len(run.XValues) == 0 {
				return
			}
			run.Name = name
			run.Style = style
			c.Series = append(c.Series, run)
			name = ""
			run = chart.ContinuousSeries{}
		}
		for i := lo; i <= hi && i < len(s.Data); i++ {
			v := s.Data[i]
			if !v.Valid {
				flush()
				continue
			}
			run.XValues = append(run.XValues, float64(i))
			run.YValues = append(run.YValues, v.Score)
		}
		flush()
	}

	if len(c.Series) == 0 {
		// go-chart refuses to draw without a visible series
		c.Series = append(c.Series, chart.ContinuousSeries{
			Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
			XValues: []float64{float64(lo), float64(hi)},
			YValues: []float64{float64(cfg.YAxis.Min), float64(cfg.YAxis.Min)},
		})
	}
	if named := legendSeries(c.Series); cfg.Legend && len(named) > 0 {
		lc := *c
		lc.Series = named
		c.Elements = []chart.Renderable{chart.Legend(&lc)}
	}
	return c
}

// legendSeries keeps the first run of every series. Continuation runs and
// the placeholder carry no name and would show up as blank legend rows.
func legendSeries(all []chart.Series) []chart.Series {
	var out []chart.Series
	for _, s := range all {
		if s.GetName() != "" {
			out = append(out, s)
		}
	}
	return out
}

func xTicks(categories []string, lo, hi int) []chart.Tick {
	var ticks []chart.Tick
	for i := lo; i <= hi && i < len(categories); i++ {
		if i < 0 {
			continue
		}
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: categories[i]})
	}
	return ticks
}

func yTicks(cfg widget.Config) []chart.Tick {
	ticks := make([]chart.Tick, 0, cfg.YAxis.Max-cfg.YAxis.Min+1)
	for v := cfg.YAxis.Min; v <= cfg.YAxis.Max; v++ {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: cfg.ScaleLabel(float64(v))})
	}
	return ticks
}
