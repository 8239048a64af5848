// Package gazeplot renders per-trial gaze event plots (fixation maps,
// scanpaths, duration-weighted heatmaps) over the stimulus images shown
// during recording.
package gazeplot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Display describes the presentation geometry of the experiment: monitor
// resolution, physical screen size and viewing distance. It converts between
// pixels, centimetres and degrees of visual angle.
type Display struct {
	WidthPx  int
	HeightPx int

	ScreenWidthCm  float64
	ScreenHeightCm float64

	// DistanceCm is the participant's eye-to-screen distance.
	DistanceCm float64
}

func (d Display) Validate() error {
	if d.WidthPx <= 0 || d.HeightPx <= 0 {
		return fmt.Errorf("display resolution %dx%d must be positive", d.WidthPx, d.HeightPx)
	}
	if d.ScreenWidthCm <= 0 || d.ScreenHeightCm <= 0 {
		return fmt.Errorf("screen size %.1fx%.1fcm must be positive", d.ScreenWidthCm, d.ScreenHeightCm)
	}
	if d.DistanceCm <= 0 {
		return fmt.Errorf("viewing distance %.1fcm must be positive", d.DistanceCm)
	}
	return nil
}

// PxPerCm is the mean pixel density of the two screen axes.
func (d Display) PxPerCm() float64 {
	return stat.Mean([]float64{
		float64(d.WidthPx) / d.ScreenWidthCm,
		float64(d.HeightPx) / d.ScreenHeightCm,
	}, nil)
}

// PxPerDeg is the on-screen size of one degree of visual angle at the
// configured viewing distance, using the small-angle chord approximation.
func (d Display) PxPerDeg() float64 {
	cmPerDeg := 2 * d.DistanceCm * math.Tan(0.5*math.Pi/180)
	return cmPerDeg * d.PxPerCm()
}

// DegFromPx converts an on-screen pixel distance to degrees of visual angle.
func (d Display) DegFromPx(px float64) float64 {
	return px / d.PxPerDeg()
}

// PxFromDeg converts degrees of visual angle to an on-screen pixel distance.
func (d Display) PxFromDeg(deg float64) float64 {
	return deg * d.PxPerDeg()
}
