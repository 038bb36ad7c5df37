// Package report renders and writes the per-run artifacts: the churn bar
// chart, the counts CSV and the run manifest.
package report

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/shopsight/churn-report/internal/domain"
)

// RenderBarChart renders one bar per group, group numbers as text labels on
// the x-axis and counts on the y-axis. The chart is rendered into a scoped
// buffer so nothing outlives the call when many shops run in one process.
func RenderBarChart(title, yAxisName string, counts []domain.GroupCount) ([]byte, error) {
	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Label: strconv.FormatInt(c.GroupNumber, 10),
			Value: float64(c.Count),
		})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 48},
		},
		YAxis: chart.YAxis{
			Name:           yAxisName,
			ValueFormatter: chart.IntValueFormatter,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "rendering bar chart")
	}

	return buf.Bytes(), nil
}
