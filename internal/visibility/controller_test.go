package visibility_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/visibility"
)

type recorder struct {
	calls []visibility.Range
}

func (r *recorder) SetExtremes(rng visibility.Range, redraw bool) {
	if redraw {
		r.calls = append(r.calls, rng)
	}
}

func pt(tm string, course string) series.DataPoint {
	return series.DataPoint{Term: term.MustParse(tm), Score: 4, Course: course}
}

// axis H2022,V2023,H2023,V2024; A owns H2022,V2023 and B owns H2023,V2024
func buildAB(t *testing.T) *series.Chart {
	t.Helper()
	c, err := series.NewBuilder(reference.Default()).Build([]series.DataPoint{
		pt("H2022", "A"), pt("V2023", "A"),
		pt("H2023", "B"), pt("V2024", "B"),
	})
	require.NoError(t, err)
	return c
}

func setVisible(t *testing.T, c *series.Chart, name string, v bool) {
	t.Helper()
	s, ok := c.Find(name)
	require.True(t, ok, name)
	s.Visible = v
}

func TestSmallSpanWidens(t *testing.T) {
	c := buildAB(t)
	rec := &recorder{}
	ctl := visibility.NewController(c, rec)

	setVisible(t, c, "B", false)
	require.NoError(t, ctl.OnVisibilityChanged())

	// span [0,1] has 2 terms, centre 0, widened to [0-3, 0+3] clamped to [0,3]
	assert.Equal(t, visibility.Range{Min: 0, Max: 3, Bounded: true}, ctl.Range())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, ctl.Range(), rec.calls[0])
}

func TestAllVisibleUsesFullAxis(t *testing.T) {
	c := buildAB(t)
	ctl := visibility.NewController(c, nil)
	require.NoError(t, ctl.OnVisibilityChanged())
	assert.Equal(t, visibility.Range{Min: 0, Max: 3, Bounded: true}, ctl.Range())
}

func TestLargeSpanIsNotWidened(t *testing.T) {
	var points []series.DataPoint
	for _, tm := range term.Range(term.MustParse("V2010"), term.MustParse("H2019")) {
		points = append(points, pt(tm.String(), "WIDE"))
	}
	points = append(points, pt("V2012", "MID"), pt("H2013", "MID"), pt("V2015", "MID"), pt("H2016", "MID"), pt("V2017", "MID"))
	c, err := series.NewBuilder(reference.Default()).Build(points)
	require.NoError(t, err)

	ctl := visibility.NewController(c, nil)
	setVisible(t, c, "WIDE", false)
	require.NoError(t, ctl.OnVisibilityChanged())
	// V2012 is index 4, V2017 is index 14
	assert.Equal(t, visibility.Range{Min: 4, Max: 14, Bounded: true}, ctl.Range())
}

func TestSmallSpanCentredInsideLongAxis(t *testing.T) {
	var points []series.DataPoint
	for _, tm := range term.Range(term.MustParse("V2010"), term.MustParse("H2019")) {
		points = append(points, pt(tm.String(), "WIDE"))
	}
	points = append(points, pt("V2015", "ONE"))
	c, err := series.NewBuilder(reference.Default()).Build(points)
	require.NoError(t, err)

	ctl := visibility.NewController(c, nil)
	setVisible(t, c, "WIDE", false)
	require.NoError(t, ctl.OnVisibilityChanged())
	// V2015 is index 10
	assert.Equal(t, visibility.Range{Min: 7, Max: 13, Bounded: true}, ctl.Range())
}

func TestZeroVisibleCollapses(t *testing.T) {
	c := buildAB(t)
	rec := &recorder{}
	ctl := visibility.NewController(c, rec)

	c.Reference().Visible = true
	setVisible(t, c, "A", false)
	setVisible(t, c, "B", false)
	require.NoError(t, ctl.OnVisibilityChanged())

	assert.False(t, c.Reference().Visible)
	assert.Equal(t, visibility.Unbounded, ctl.Range())
	assert.False(t, ctl.Range().Bounded)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, visibility.Unbounded, rec.calls[0])
}

func TestReferenceDoesNotDriveRange(t *testing.T) {
	c := buildAB(t)
	ctl := visibility.NewController(c, nil)

	c.Reference().Visible = true
	setVisible(t, c, "A", false)
	require.NoError(t, ctl.OnVisibilityChanged())

	// only B's span [2,3] counts: centre 2, widened to [0,3]
	assert.True(t, c.Reference().Visible)
	assert.Equal(t, visibility.Range{Min: 0, Max: 3, Bounded: true}, ctl.Range())
}

func TestSentinelChartKeepsReferenceVisible(t *testing.T) {
	c, err := series.NewBuilder(reference.Default()).BuildReference()
	require.NoError(t, err)
	ctl := visibility.NewController(c, nil)
	require.NoError(t, ctl.OnVisibilityChanged())
	assert.True(t, c.Series[0].Visible)
	assert.Equal(t, visibility.Unbounded, ctl.Range())
}

func TestIndexNotFound(t *testing.T) {
	c := buildAB(t)
	c.Spans["A"] = append(c.Spans["A"], term.MustParse("H2030"))
	ctl := visibility.NewController(c, nil)

	err := ctl.OnVisibilityChanged()
	var nf *visibility.IndexNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "H2030", nf.Term.String())
}

func TestRangeContains(t *testing.T) {
	r := visibility.Range{Min: 2, Max: 4, Bounded: true}
	assert.False(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(5))
	assert.True(t, visibility.Unbounded.Contains(100))
	assert.Equal(t, "[2,4]", r.String())
	assert.Equal(t, "unbounded", visibility.Unbounded.String())
}
