package level

import (
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
)

// MeasureProfile runs the full pipeline over an already-extracted brightness
// profile: locate the surface row, interpolate the calibrated height, convert
// to liters, and build the timestamped document.
func MeasureProfile(profile []int, cal *Calibration, cfg Config, at time.Time) (Document, error) {
	pixel, err := LocateTransition(profile, cfg)
	if err != nil {
		return Document{}, err
	}
	levelCm, err := cal.Level(float64(pixel))
	if err != nil {
		return Document{}, err
	}
	return NewDocument(levelCm, cfg.Volume(levelCm), pixel, at), nil
}

// MeasureDump measures from a textual brightness dump produced by an
// external preprocessing tool.
func MeasureDump(r io.Reader, cal *Calibration, cfg Config, at time.Time) (Document, error) {
	profile, err := ParseProfile(r)
	if err != nil {
		return Document{}, err
	}
	return MeasureProfile(profile, cal, cfg, at)
}

// MeasureImage measures directly from a photograph on disk using the native
// preprocessing path (crop, grayscale, edge detection, column collapse).
func MeasureImage(path string, cal *Calibration, cfg Config, at time.Time) (Document, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	return MeasureProfile(ProfileFromImage(img, cfg), cal, cfg, at)
}
