package gazeplot

import (
	"fmt"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"

	"github.com/fovea-data/gaze.report/internal/smi"
)

// heatCell is the heatmap grid resolution in screen pixels. Fixation spread
// is far coarser than single pixels, so the grid is downsampled to keep
// rendering cheap.
const heatCell = 8.0

// heatGrid is a duration-weighted accumulation grid over the display,
// implementing plotter.GridXYZ in plot space (y up).
type heatGrid struct {
	vals []float64
	cols int
	rows int
}

func newHeatGrid(disp Display) *heatGrid {
	cols := int(math.Ceil(float64(disp.WidthPx) / heatCell))
	rows := int(math.Ceil(float64(disp.HeightPx) / heatCell))
	return &heatGrid{vals: make([]float64, cols*rows), cols: cols, rows: rows}
}

func (g *heatGrid) Dims() (c, r int)   { return g.cols, g.rows }
func (g *heatGrid) X(c int) float64    { return (float64(c) + 0.5) * heatCell }
func (g *heatGrid) Y(r int) float64    { return (float64(r) + 0.5) * heatCell }
func (g *heatGrid) Z(c, r int) float64 { return g.vals[r*g.cols+c] }

// deposit adds a truncated Gaussian kernel centred on (x, y) in plot space,
// scaled by weight.
func (g *heatGrid) deposit(x, y, sigma, weight float64) {
	reach := int(math.Ceil(3 * sigma / heatCell))
	cc := int(x / heatCell)
	cr := int(y / heatCell)
	inv := 1 / (2 * sigma * sigma)

	for r := cr - reach; r <= cr+reach; r++ {
		if r < 0 || r >= g.rows {
			continue
		}
		for c := cc - reach; c <= cc+reach; c++ {
			if c < 0 || c >= g.cols {
				continue
			}
			dx := g.X(c) - x
			dy := g.Y(r) - y
			g.vals[r*g.cols+c] += weight * math.Exp(-(dx*dx+dy*dy)*inv)
		}
	}
}

// DrawHeatmap renders a duration-weighted fixation heatmap. The Gaussian
// kernel width is one degree of visual angle at the configured viewing
// distance.
func DrawHeatmap(fixations []smi.Fixation, disp Display, imagePath, outPath string) error {
	p, err := newTrialPlot("Fixation heatmap", disp, imagePath)
	if err != nil {
		return err
	}

	sigma := disp.PxPerDeg()
	if sigma < heatCell {
		sigma = heatCell
	}

	grid := newHeatGrid(disp)
	for _, f := range fixations {
		w := f.Duration
		if w <= 0 {
			w = 1
		}
		grid.deposit(f.X, flipY(disp, f.Y), sigma, w)
	}

	hm := plotter.NewHeatMap(grid, palette.Heat(255, 1))
	p.Add(hm)

	if err := savePlot(p, disp, outPath); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}
