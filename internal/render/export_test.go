package render

import "github.com/wcharczuk/go-chart/v2"

// LegendLabels lists the names the legend of c shows.
func LegendLabels(c *chart.Chart) []string {
	var out []string
	for _, s := range legendSeries(c.Series) {
		out = append(out, s.GetName())
	}
	return out
}
