package level

import (
	"math"
	"time"
)

// timestampLayout is ISO-8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Document is the immutable result of one measurement run. It marshals to
// the single-line record appended to the measurement log and to the pretty
// snapshot file.
type Document struct {
	Timestamp  string  `json:"timestamp"`
	LevelCm    float64 `json:"level_cm"`
	LevelLiter float64 `json:"level_liter"`
	LevelPixel int     `json:"level_pixel"`
}

// NewDocument builds a measurement document. Level and volume are rounded to
// one decimal and kept numeric; the detected pixel is preserved as-is; the
// capture time is rendered in UTC with millisecond precision.
func NewDocument(levelCm, levelLiter float64, pixel int, at time.Time) Document {
	return Document{
		Timestamp:  at.UTC().Format(timestampLayout),
		LevelCm:    round1(levelCm),
		LevelLiter: round1(levelLiter),
		LevelPixel: pixel,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
