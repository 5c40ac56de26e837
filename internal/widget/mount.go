package widget

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/visibility"
)

// Spec describes one chart container on a page.
type Spec struct {
	Course string
	Raw    []byte
	Points []series.DataPoint
}

// Result is the outcome of mounting one Spec. Exactly one of Widget and Err
// is set.
type Result struct {
	Course string
	Widget *Widget
	Err    error
}

// Mount builds a widget for every spec. Each widget is isolated: a failure,
// including a panic, in one Spec is logged and reported in its Result while
// the others still mount. base supplies the shared options (locale, table,
// logger, metrics); its Course, Raw, Points and ID are ignored.
func Mount(specs []Spec, base Options) []Result {
	logger := base.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]Result, 0, len(specs))
	for _, spec := range specs {
		opts := base
		opts.ID = ""
		opts.Course = spec.Course
		opts.Raw = spec.Raw
		opts.Points = spec.Points

		w, err := mountOne(opts)
		if err != nil {
			reason := FailureReason(err)
			base.Metrics.WidgetFailed(reason)
			attrs := []any{slog.String("course", spec.Course), slog.String("reason", reason), slog.String("error", err.Error())}
			switch reason {
			case "no_data":
				logger.Info("No data for course, widget skipped", attrs...)
			case "malformed":
				logger.Warn("Widget skipped", attrs...)
			default:
				logger.Error("Widget failed", attrs...)
			}
			out = append(out, Result{Course: spec.Course, Err: err})
			continue
		}
		kind := "course"
		if spec.Course == series.AverageCourse {
			kind = "average"
		}
		base.Metrics.WidgetMounted(kind)
		out = append(out, Result{Course: spec.Course, Widget: w})
	}
	return out
}

func mountOne(opts Options) (w *Widget, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("widget %s panicked: %v", opts.Course, r)
		}
	}()
	return New(opts)
}

// FailureReason classifies a widget error for logs and metrics.
func FailureReason(err error) string {
	var (
		malformed *term.MalformedTermError
		notFound  *visibility.IndexNotFoundError
	)
	switch {
	case errors.Is(err, series.ErrNoData):
		return "no_data"
	case errors.As(err, &malformed), errors.Is(err, ErrMalformedBlob):
		return "malformed"
	case errors.As(err, &notFound), errors.Is(err, series.ErrEmptyAxis):
		return "invariant"
	}
	return "internal"
}

// Registry holds live widgets by id. It keeps at most Capacity widgets and
// drops widgets nobody touched for IdleTTL; the least recently used widget
// goes first when the registry is full.
type Registry struct {
	mu       sync.Mutex
	widgets  map[string]*entry
	capacity int
	idleTTL  time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

type entry struct {
	w        *Widget
	lastUsed time.Time
}

const (
	DefaultCapacity = 1000
	DefaultIdleTTL  = 30 * time.Minute
)

type RegistryOption func(*Registry)

// WithCapacity bounds the number of live widgets. n <= 0 keeps the default.
func WithCapacity(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithIdleTTL sets how long an untouched widget stays. d <= 0 keeps the
// default.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		widgets:  map[string]*entry{},
		capacity: DefaultCapacity,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add stores w, evicting idle widgets and then, while the registry is full,
// the least recently used one.
func (r *Registry) Add(w *Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.expireLocked(now)
	if _, ok := r.widgets[w.ID]; !ok {
		for len(r.widgets) >= r.capacity {
			r.evictOldestLocked()
		}
	}
	r.widgets[w.ID] = &entry{w: w, lastUsed: now}
	r.metrics.WidgetsLive(len(r.widgets))
}

// Get returns the widget and marks it used. An idle widget is dropped and
// not returned.
func (r *Registry) Get(id string) (*Widget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.widgets[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.Sub(e.lastUsed) > r.idleTTL {
		r.removeLocked(id, "idle")
		return nil, false
	}
	e.lastUsed = now
	return e.w, true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.widgets, id)
	r.metrics.WidgetsLive(len(r.widgets))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

func (r *Registry) expireLocked(now time.Time) {
	for id, e := range r.widgets {
		if now.Sub(e.lastUsed) > r.idleTTL {
			r.removeLocked(id, "idle")
		}
	}
}

func (r *Registry) evictOldestLocked() {
	var (
		oldest string
		at     time.Time
	)
	for id, e := range r.widgets {
		if oldest == "" || e.lastUsed.Before(at) {
			oldest, at = id, e.lastUsed
		}
	}
	r.removeLocked(oldest, "capacity")
}

func (r *Registry) removeLocked(id, reason string) {
	delete(r.widgets, id)
	r.metrics.WidgetEvicted(reason)
	r.metrics.WidgetsLive(len(r.widgets))
}
