// Package render draws the acquisition-time sensitivity curve, either as an
// interactive HTML page or as PNG files.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cjeanneret/ScanGo/internal/logic/sensitivity"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
)

// AssetsHost serves the echarts javascript bundle referenced by rendered pages.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("no curve points to render")

// ChartPage writes an HTML page with two line charts: acquisition time and
// total points, both against the angular increment.
func ChartPage(w io.Writer, title string, pts []sensitivity.Point) error {
	if len(pts) == 0 {
		return ErrNoPoints
	}

	incs := sensitivity.Increments(pts)
	x := make([]string, len(incs))
	for i, inc := range incs {
		x[i] = numfmt.MustFormat(inc, 4)
	}
	durations := lineData(sensitivity.Durations(pts))
	totals := lineData(sensitivity.TotalPoints(pts))

	subtitle := fmt.Sprintf("%d samples, longest %s s", len(pts), numfmt.MustFormat(sensitivity.Longest(pts), 0))

	duration := charts.NewLine()
	duration.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Δφ = Δθ (°)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "T (s)", NameLocation: "middle", NameGap: 50}),
	)
	duration.SetXAxis(x).AddSeries("T", durations)

	points := charts.NewLine()
	points.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Total points"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Δφ = Δθ (°)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "PT", NameLocation: "middle", NameGap: 60}),
	)
	points.SetXAxis(x).AddSeries("PT", totals)

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = title
	page.AddCharts(duration, points)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

func lineData(ys []float64) []opts.LineData {
	out := make([]opts.LineData, len(ys))
	for i, y := range ys {
		out[i] = opts.LineData{Value: y}
	}
	return out
}
