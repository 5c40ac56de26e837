// Package widget wires one rating chart instance together: it decodes the
// embedded data, builds the series, owns the visibility controller and
// exposes the configuration a chart renderer draws from.
package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/mind-engage/courseratings/internal/locale"
	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/visibility"
)

var ErrUnknownSeries = errors.New("unknown series")

// RedrawFunc receives the widget configuration every time the chart has to
// be drawn again. It runs after the widget lock is released, so it may call
// back into the widget.
type RedrawFunc func(Config)

type Options struct {
	// ID defaults to a random uuid.
	ID     string
	Course string
	// Points takes precedence over Raw when non-nil.
	Points []series.DataPoint
	Raw    []byte
	Locale locale.Locale
	// Table defaults to reference.Default().
	Table   *reference.Table
	Palette []string
	Redraw  RedrawFunc
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Widget is one chart instance. Its methods are safe for concurrent use and
// visibility changes are applied one at a time.
type Widget struct {
	ID     string
	Course string
	Locale locale.Locale

	mu       sync.Mutex
	chart    *series.Chart
	ctl      *visibility.Controller
	strings  locale.Table
	title    string
	extremes visibility.Range
	redraws  int
	redraw   RedrawFunc
	pending  *Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New builds a widget and runs the initial range computation.
func New(opts Options) (*Widget, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	table := opts.Table
	if table == nil {
		table = reference.Default()
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	strs := locale.Lookup(opts.Locale)

	builder := series.NewBuilder(table,
		series.WithPalette(opts.Palette),
		series.WithReferenceName(strs.ReferenceName),
	)

	var (
		chart *series.Chart
		err   error
	)
	if opts.Course == series.AverageCourse {
		chart, err = builder.BuildReference()
	} else {
		points := opts.Points
		if points == nil {
			points, err = Decode(opts.Raw)
		}
		if err == nil {
			chart, err = builder.Build(points)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", opts.Course, err)
	}

	w := &Widget{
		ID:      id,
		Course:  opts.Course,
		Locale:  opts.Locale,
		chart:   chart,
		strings: strs,
		title:   title(chart.Axis, strs),
		redraw:  opts.Redraw,
		logger:  logger.With(slog.String("widget", id), slog.String("course", opts.Course)),
		metrics: opts.Metrics,
	}
	w.ctl = visibility.NewController(chart, w)

	w.mu.Lock()
	err = w.ctl.OnVisibilityChanged()
	w.unlockAndRedraw()
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", opts.Course, err)
	}
	return w, nil
}

func title(axis []term.Term, strs locale.Table) string {
	if len(axis) == 0 {
		return ""
	}
	first := axis[0]
	name, ok := strs.Periods[first.Period.Code()]
	if !ok {
		return ""
	}
	return strs.TitlePrefix + name + " " + strconv.Itoa(first.Year)
}

// SetExtremes is called by the visibility controller.
func (w *Widget) SetExtremes(r visibility.Range, redraw bool) {
	w.extremes = r
	w.logger.Debug("Visible range set", slog.String("range", r.String()))
	if !redraw {
		return
	}
	w.redraws++
	if w.redraw != nil {
		cfg := w.configLocked()
		w.pending = &cfg
	}
}

// unlockAndRedraw releases w.mu and then hands a pending redraw to the
// callback.
func (w *Widget) unlockAndRedraw() {
	cfg := w.pending
	w.pending = nil
	w.mu.Unlock()
	if cfg != nil {
		w.redraw(*cfg)
	}
}

// Toggle flips the visibility of the named series, the way a legend click
// does, and recomputes the visible range.
func (w *Widget) Toggle(name string) (Config, error) {
	w.mu.Lock()
	defer w.unlockAndRedraw()
	s, ok := w.chart.Find(name)
	if !ok {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownSeries, name)
	}
	return w.setVisibleLocked(s, !s.Visible)
}

// SetVisible shows or hides the named series.
func (w *Widget) SetVisible(name string, visible bool) (Config, error) {
	w.mu.Lock()
	defer w.unlockAndRedraw()
	s, ok := w.chart.Find(name)
	if !ok {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownSeries, name)
	}
	return w.setVisibleLocked(s, visible)
}

func (w *Widget) setVisibleLocked(s *series.Series, visible bool) (Config, error) {
	s.Visible = visible
	w.metrics.Toggled()
	if err := w.ctl.OnVisibilityChanged(); err != nil {
		w.logger.Error("Visible range recomputation failed", slog.String("error", err.Error()))
		return Config{}, err
	}
	return w.configLocked(), nil
}

// Config returns a snapshot of the chart configuration.
func (w *Widget) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.configLocked()
}

// Title is the widget header, e.g. "General rating since autumn 2019".
func (w *Widget) Title() string { return w.title }

// Redraws counts redraw requests issued so far.
func (w *Widget) Redraws() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.redraws
}

func (w *Widget) configLocked() Config {
	cfg := Config{
		ID:         w.ID,
		Course:     w.Course,
		Title:      w.title,
		Categories: w.chart.Categories(),
		YAxis: YAxis{
			Min:    series.MinScore,
			Max:    series.MaxScore,
			Labels: append([]string(nil), w.strings.ScaleLabels[:]...),
		},
		Legend: w.Course != series.AverageCourse,
	}
	for _, s := range w.chart.Series {
		cp := *s
		cp.Data = append([]series.Value(nil), s.Data...)
		cfg.Series = append(cfg.Series, cp)
	}
	if w.extremes.Bounded {
		cfg.Extremes = &Extremes{Min: w.extremes.Min, Max: w.extremes.Max}
	}
	return cfg
}
