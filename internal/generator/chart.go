package generator

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Zachdehooge/grid-dashboard/internal/store"
)

// RenderHistoryChart writes the incident-count trend as an echarts page.
func RenderHistoryChart(w io.Writer, samples []store.HistorySample, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	x := make([]string, 0, len(samples))
	y := make([]opts.LineData, 0, len(samples))
	for _, s := range samples {
		x = append(x, s.Timestamp.In(loc).Format("3:04 PM"))
		y = append(y, opts.LineData{Value: s.Count})
	}

	subtitle := "no samples yet"
	if n := len(samples); n > 0 {
		subtitle = fmt.Sprintf("last %d polls", n)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Incident Trend", Theme: "dark", Width: "100%", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Active incidents", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Name: "incidents"}),
	)
	line.SetXAxis(x).
		AddSeries("incidents", y,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = "Incident Trend"
	page.AddCharts(line)
	return page.Render(w)
}
