package level

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// CalibrationPoint correlates a manually measured fill height with the pixel
// row at which the surface line appears in the strip for that height.
type CalibrationPoint struct {
	HeightCm    float64
	PixelOffset float64
}

// Calibration is the site-specific table used to convert a detected pixel
// row into a physical level. The camera looks down the strip, so pixel
// offsets decrease as the fill height increases; the interpolation assumes
// this holds for the bracketing pair. The table's internal consistency
// (monotonicity, duplicate offsets) is NOT validated — a malformed table
// produces a wrong level, not an error.
type Calibration struct {
	points []CalibrationPoint // sorted ascending by HeightCm
}

// NewCalibration builds a calibration from at least two points. The input
// order does not matter; points are sorted by height internally.
func NewCalibration(points []CalibrationPoint) (*Calibration, error) {
	if len(points) < 2 {
		return nil, ErrCalibrationTooSmall
	}
	sorted := make([]CalibrationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HeightCm < sorted[j].HeightCm })
	return &Calibration{points: sorted}, nil
}

// LoadCalibrationFile reads a JSON object of the form
// {"<height_cm>": <pixel_offset>, ...}.
func LoadCalibrationFile(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration file %s: %w", path, err)
	}
	points := make([]CalibrationPoint, 0, len(raw))
	for k, v := range raw {
		h, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return nil, fmt.Errorf("calibration file %s: height key %q is not numeric", path, k)
		}
		points = append(points, CalibrationPoint{HeightCm: h, PixelOffset: v})
	}
	return NewCalibration(points)
}

// Points returns the calibration points in ascending height order.
func (c *Calibration) Points() []CalibrationPoint {
	out := make([]CalibrationPoint, len(c.points))
	copy(out, c.points)
	return out
}

// Level interpolates the physical height for a detected pixel row.
//
// The bracketing pair is chosen by a single walk over the points in
// ascending height order: `before` is overwritten by every point whose
// offset is still above the detected pixel (so it ends up as the last such
// point), `after` is the first point whose offset is below it. An exact hit
// on a calibration point returns that point's height directly. The selection
// is deliberately order-dependent rather than nearest-distance; changing it
// would change results on non-monotonic tables.
//
// Returns ErrOutOfCalibration when no bracketing pair exists: the detected
// pixel is outside the calibrated span and extrapolation is unsupported.
func (c *Calibration) Level(pixel float64) (float64, error) {
	if len(c.points) < 2 {
		return 0, ErrCalibrationTooSmall
	}
	for _, p := range c.points {
		if p.PixelOffset == pixel {
			return p.HeightCm, nil
		}
	}
	var before, after CalibrationPoint
	haveBefore, haveAfter := false, false
	for _, p := range c.points {
		if p.PixelOffset > pixel {
			before = p
			haveBefore = true
		} else if p.PixelOffset < pixel && !haveAfter {
			after = p
			haveAfter = true
		}
	}
	if !haveBefore || !haveAfter {
		return 0, fmt.Errorf("%w: pixel %.1f, calibrated span %.1f..%.1f",
			ErrOutOfCalibration, pixel, c.points[0].PixelOffset, c.points[len(c.points)-1].PixelOffset)
	}
	fraction := 1 - ((pixel - after.PixelOffset) / (before.PixelOffset - after.PixelOffset))
	return before.HeightCm + (after.HeightCm-before.HeightCm)*fraction, nil
}

// Volume converts an interpolated level into liters.
func (cfg Config) Volume(levelCm float64) float64 {
	return levelCm * cfg.LitersPerCm
}
