package gazeplot

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/fovea-data/gaze.report/internal/smi"
)

const plotWidth = 8 * vg.Inch

var (
	fixationColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0x80}
	saccadeColor  = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xc0}
)

// newTrialPlot builds a plot whose data space is the screen coordinate
// system: x rightward, y downward, one unit per pixel. Event coordinates are
// flipped with flipY before plotting.
func newTrialPlot(title string, disp Display, imagePath string) (*plot.Plot, error) {
	if err := disp.Validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, float64(disp.WidthPx)
	p.Y.Min, p.Y.Max = 0, float64(disp.HeightPx)

	if imagePath != "" {
		img, err := loadImage(imagePath)
		if err != nil {
			return nil, err
		}
		p.Add(plotter.NewImage(img, 0, 0, float64(disp.WidthPx), float64(disp.HeightPx)))
	}
	return p, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stimulus image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode stimulus image %s: %w", path, err)
	}
	return img, nil
}

// flipY converts a screen y coordinate (origin top-left) to plot space
// (origin bottom-left).
func flipY(disp Display, y float64) float64 {
	return float64(disp.HeightPx) - y
}

func savePlot(p *plot.Plot, disp Display, outPath string) error {
	height := plotWidth * vg.Length(disp.HeightPx) / vg.Length(disp.WidthPx)
	if err := p.Save(plotWidth, height, outPath); err != nil {
		return fmt.Errorf("save plot %s: %w", outPath, err)
	}
	return nil
}

// DrawFixations renders a fixation map: one marker per fixation, radius
// scaled with duration.
func DrawFixations(fixations []smi.Fixation, disp Display, imagePath, outPath string) error {
	p, err := newTrialPlot("Fixations", disp, imagePath)
	if err != nil {
		return err
	}

	pts := make(plotter.XYs, len(fixations))
	maxDur := 0.0
	for i, f := range fixations {
		pts[i] = plotter.XY{X: f.X, Y: flipY(disp, f.Y)}
		if f.Duration > maxDur {
			maxDur = f.Duration
		}
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build fixation scatter: %w", err)
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		r := vg.Length(4)
		if maxDur > 0 {
			r = vg.Length(3 + 12*fixations[i].Duration/maxDur)
		}
		return draw.GlyphStyle{
			Color:  fixationColor,
			Radius: r,
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(sc)

	return savePlot(p, disp, outPath)
}

// DrawScanpath renders the saccade path with fixation markers on top.
func DrawScanpath(fixations []smi.Fixation, saccades []smi.Saccade, disp Display, imagePath, outPath string) error {
	p, err := newTrialPlot("Scanpath", disp, imagePath)
	if err != nil {
		return err
	}

	for _, s := range saccades {
		seg := plotter.XYs{
			{X: s.StartX, Y: flipY(disp, s.StartY)},
			{X: s.EndX, Y: flipY(disp, s.EndY)},
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("build saccade segment: %w", err)
		}
		line.Color = saccadeColor
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	pts := make(plotter.XYs, len(fixations))
	labels := make([]string, len(fixations))
	for i, f := range fixations {
		pts[i] = plotter.XY{X: f.X, Y: flipY(disp, f.Y)}
		labels[i] = fmt.Sprintf("%d", i+1)
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("build fixation markers: %w", err)
	}
	sc.GlyphStyle = draw.GlyphStyle{Color: fixationColor, Radius: vg.Points(6), Shape: draw.CircleGlyph{}}
	p.Add(sc)

	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return fmt.Errorf("build fixation labels: %w", err)
	}
	p.Add(lbl)

	return savePlot(p, disp, outPath)
}
