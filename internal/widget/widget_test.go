package widget_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseratings/internal/locale"
	"github.com/mind-engage/courseratings/internal/metrics"
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/widget"
)

const blob = `[
	["H2022", 4.1, "INF1000"],
	["V2023", 4.4, "INF1000"],
	["H2023", 5.0, "IN1000"],
	["V2024", 5.3, "IN1000"]
]`

func TestDecode(t *testing.T) {
	pts, err := widget.Decode([]byte(blob))
	require.NoError(t, err)
	require.Len(t, pts, 4)
	assert.Equal(t, series.DataPoint{Term: term.MustParse("H2022"), Score: 4.1, Course: "INF1000"}, pts[0])

	back, err := widget.Encode(pts)
	require.NoError(t, err)
	again, err := widget.Decode(back)
	require.NoError(t, err)
	assert.Equal(t, pts, again)
}

func TestDecodeErrors(t *testing.T) {
	_, err := widget.Decode(nil)
	assert.ErrorIs(t, err, series.ErrNoData)
	_, err = widget.Decode([]byte("  \n"))
	assert.ErrorIs(t, err, series.ErrNoData)

	_, err = widget.Decode([]byte(`{"not":"a list"}`))
	assert.ErrorIs(t, err, widget.ErrMalformedBlob)

	_, err = widget.Decode([]byte(`[["H2022", 4.1]]`))
	assert.ErrorIs(t, err, widget.ErrMalformedBlob)

	_, err = widget.Decode([]byte(`[["2022H", 4.1, "A"]]`))
	var mErr *term.MalformedTermError
	assert.ErrorAs(t, err, &mErr)
}

func TestNewCourseWidget(t *testing.T) {
	var redrawn []widget.Config
	w, err := widget.New(widget.Options{
		ID:     "w1",
		Course: "IN1000",
		Raw:    []byte(blob),
		Locale: locale.English,
		Redraw: func(c widget.Config) { redrawn = append(redrawn, c) },
	})
	require.NoError(t, err)

	assert.Equal(t, "General rating since autumn 2022", w.Title())
	assert.Equal(t, 1, w.Redraws())
	require.Len(t, redrawn, 1)

	cfg := w.Config()
	assert.Equal(t, "w1", cfg.ID)
	assert.True(t, cfg.Legend)
	assert.Equal(t, []string{"H2022", "V2023", "H2023", "V2024"}, cfg.Categories)
	assert.Equal(t, 1, cfg.YAxis.Min)
	assert.Equal(t, 7, cfg.YAxis.Max)
	assert.Equal(t, "Neither good nor bad", cfg.ScaleLabel(4))
	assert.Equal(t, "", cfg.ScaleLabel(9))
	require.Len(t, cfg.Series, 3)
	assert.Equal(t, "INF1000", cfg.Series[0].Name)
	assert.True(t, cfg.Series[2].Reference)
	require.NotNil(t, cfg.Extremes)
	assert.Equal(t, widget.Extremes{Min: 0, Max: 3}, *cfg.Extremes)
}

func TestTitleNorwegian(t *testing.T) {
	w, err := widget.New(widget.Options{Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)
	assert.Equal(t, "Generell vurdering fra høsten 2022", w.Title())
}

func TestToggleRecomputesRange(t *testing.T) {
	w, err := widget.New(widget.Options{Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)

	cfg, err := w.Toggle("IN1000")
	require.NoError(t, err)
	require.NotNil(t, cfg.Extremes)
	assert.Equal(t, widget.Extremes{Min: 0, Max: 3}, *cfg.Extremes)
	assert.Len(t, cfg.VisibleSeries(), 1)

	cfg, err = w.Toggle("INF1000")
	require.NoError(t, err)
	assert.Nil(t, cfg.Extremes)
	assert.Empty(t, cfg.VisibleSeries())

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"extremes":null`)

	_, err = w.Toggle("nope")
	assert.ErrorIs(t, err, widget.ErrUnknownSeries)
	assert.Equal(t, 3, w.Redraws())
}

func TestRedrawMayCallBackIntoWidget(t *testing.T) {
	var (
		w      *widget.Widget
		titles []string
	)
	w, err := widget.New(widget.Options{
		Course: "IN1000",
		Raw:    []byte(blob),
		Locale: locale.English,
		Redraw: func(widget.Config) {
			if w != nil {
				titles = append(titles, w.Config().Title)
			}
		},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.Toggle("IN1000")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("toggle did not return")
	}
	assert.Equal(t, []string{"General rating since autumn 2022"}, titles)
}

func TestReferenceHiddenWhenCoursesHidden(t *testing.T) {
	w, err := widget.New(widget.Options{Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)

	ref := "Gjennomsnitt på Ifi"
	cfg, err := w.SetVisible(ref, true)
	require.NoError(t, err)
	assert.True(t, cfg.Series[2].Visible)

	_, err = w.SetVisible("IN1000", false)
	require.NoError(t, err)
	cfg, err = w.SetVisible("INF1000", false)
	require.NoError(t, err)
	assert.False(t, cfg.Series[2].Visible)
}

func TestConfigIsSnapshot(t *testing.T) {
	w, err := widget.New(widget.Options{Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)
	cfg := w.Config()
	cfg.Series[0].Visible = false
	cfg.Series[0].Data[0] = series.Some(1)
	again := w.Config()
	assert.True(t, again.Series[0].Visible)
	assert.Equal(t, series.Some(4.1), again.Series[0].Data[0])
}

func TestAverageWidget(t *testing.T) {
	w, err := widget.New(widget.Options{Course: series.AverageCourse, Locale: locale.English})
	require.NoError(t, err)
	cfg := w.Config()
	assert.False(t, cfg.Legend)
	require.Len(t, cfg.Series, 1)
	assert.True(t, cfg.Series[0].Visible)
	assert.Len(t, cfg.Categories, reference.Default().Len())
	assert.Equal(t, "General rating since spring 2009", w.Title())
	assert.Nil(t, cfg.Extremes)
}

func TestMountIsolatesFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	results := widget.Mount([]widget.Spec{
		{Course: "IN1000", Raw: []byte(blob)},
		{Course: "EMPTY"},
		{Course: "BAD", Raw: []byte(`[["X2020", 4, "BAD"]]`)},
		{Course: "BOOM", Raw: []byte(blob)},
		{Course: series.AverageCourse},
	}, widget.Options{
		Logger: logger,
		Redraw: func(c widget.Config) {
			if c.Course == "BOOM" {
				panic("renderer exploded")
			}
		},
	})

	require.Len(t, results, 5)
	assert.NotNil(t, results[0].Widget)
	assert.NoError(t, results[0].Err)

	assert.ErrorIs(t, results[1].Err, series.ErrNoData)
	assert.Equal(t, "no_data", widget.FailureReason(results[1].Err))

	assert.Equal(t, "malformed", widget.FailureReason(results[2].Err))

	require.Error(t, results[3].Err)
	assert.Nil(t, results[3].Widget)
	assert.Contains(t, results[3].Err.Error(), "panicked")

	assert.NotNil(t, results[4].Widget)

	// widgets never share state
	assert.NotEqual(t, results[0].Widget.ID, results[4].Widget.ID)
	assert.Contains(t, logs.String(), "No data for course")
}

func TestRegistry(t *testing.T) {
	reg := widget.NewRegistry()
	w, err := widget.New(widget.Options{Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)
	reg.Add(w)
	got, ok := reg.Get(w.ID)
	require.True(t, ok)
	assert.Same(t, w, got)
	assert.Equal(t, 1, reg.Len())
	reg.Delete(w.ID)
	_, ok = reg.Get(w.ID)
	assert.False(t, ok)
}

func newIDWidget(t *testing.T, id string) *widget.Widget {
	t.Helper()
	w, err := widget.New(widget.Options{ID: id, Course: "IN1000", Raw: []byte(blob)})
	require.NoError(t, err)
	return w
}

func TestRegistryCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	promReg := prometheus.NewRegistry()
	reg := widget.NewRegistry(
		widget.WithCapacity(2),
		widget.WithClock(clock),
		widget.WithRegistryMetrics(metrics.New(promReg)),
	)

	reg.Add(newIDWidget(t, "a"))
	now = now.Add(time.Second)
	reg.Add(newIDWidget(t, "b"))
	now = now.Add(time.Second)
	_, ok := reg.Get("a") // a is now the most recently used
	require.True(t, ok)
	now = now.Add(time.Second)
	reg.Add(newIDWidget(t, "c"))

	assert.Equal(t, 2, reg.Len())
	_, ok = reg.Get("b")
	assert.False(t, ok)
	_, ok = reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("c")
	assert.True(t, ok)

	// re-adding a live id does not evict anything
	reg.Add(newIDWidget(t, "c"))
	assert.Equal(t, 2, reg.Len())

	for i := 0; i < 50; i++ {
		reg.Add(newIDWidget(t, fmt.Sprintf("w%d", i)))
	}
	assert.Equal(t, 2, reg.Len())

	assert.Equal(t, 2.0, gathered(t, promReg, "courseratings_widgets_live"))
	assert.Equal(t, 51.0, gathered(t, promReg, "courseratings_widgets_evicted_total"))
}

// gathered sums every sample of the named metric family.
func gathered(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			}
		}
	}
	return sum
}

func TestRegistryDropsIdleWidgets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := widget.NewRegistry(
		widget.WithIdleTTL(time.Minute),
		widget.WithClock(func() time.Time { return now }),
	)
	reg.Add(newIDWidget(t, "old"))
	reg.Add(newIDWidget(t, "kept"))

	now = now.Add(40 * time.Second)
	_, ok := reg.Get("kept")
	require.True(t, ok)

	now = now.Add(40 * time.Second)
	_, ok = reg.Get("old")
	assert.False(t, ok)
	_, ok = reg.Get("kept")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	reg.Add(newIDWidget(t, "new"))
	assert.Equal(t, 1, reg.Len())
}
