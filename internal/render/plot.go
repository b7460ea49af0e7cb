package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cjeanneret/ScanGo/internal/logic/sensitivity"
)

// File names written by SavePlots.
const (
	DurationPlotFile = "duration_vs_increment.png"
	PointsPlotFile   = "points_vs_increment.png"
)

// SavePlots writes the duration and total-points curves as PNG files into dir,
// creating it if needed, and returns the written paths.
func SavePlots(dir string, pts []sensitivity.Point) ([]string, error) {
	if len(pts) == 0 {
		return nil, ErrNoPoints
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	incs := sensitivity.Increments(pts)
	durXY := xys(incs, sensitivity.Durations(pts))
	ptsXY := xys(incs, sensitivity.TotalPoints(pts))

	durFile := filepath.Join(dir, DurationPlotFile)
	if err := savePlot(durFile, "Acquisition time", "T (s)", "T", durXY); err != nil {
		return nil, fmt.Errorf("save duration plot: %w", err)
	}

	ptsFile := filepath.Join(dir, PointsPlotFile)
	if err := savePlot(ptsFile, "Total points", "PT (points)", "PT", ptsXY); err != nil {
		return nil, fmt.Errorf("save points plot: %w", err)
	}

	return []string{durFile, ptsFile}, nil
}

func savePlot(file, title, yLabel, legend string, xys plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Increment (°)"
	p.Y.Label.Text = yLabel

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(legend, line)
	p.Legend.Top = true

	return p.Save(10*vg.Inch, 5*vg.Inch, file)
}

// xys pairs xs with ys; both come from the same curve, so they have the same length.
func xys(xs, ys []float64) plotter.XYs {
	out := make(plotter.XYs, len(xs))
	for i := range xs {
		out[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return out
}
