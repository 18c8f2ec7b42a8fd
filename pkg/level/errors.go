package level

import (
	"errors"
	"fmt"
)

// ErrNoTransition is returned when the two-phase scan never finds a liquid
// surface: either no sample crosses the bright threshold, or no qualifying
// zero-run follows it. This is a normal operating condition (empty tank,
// over-full tank, bad photo) and is distinct from a parse failure.
var ErrNoTransition = errors.New("no level transition detected")

// ErrOutOfCalibration is returned when the detected pixel lies outside the
// span covered by the calibration points. No extrapolation is ever performed.
var ErrOutOfCalibration = errors.New("detected pixel outside calibrated range")

// ErrCalibrationTooSmall is returned when fewer than two calibration points
// are available; a single point cannot bracket anything.
var ErrCalibrationTooSmall = errors.New("calibration needs at least two points")

// ParseError reports a brightness-dump line that does not match the expected
// pixel pattern. The whole run aborts on the first such line: a gap in the
// profile shifts every downstream pixel offset.
type ParseError struct {
	Line int    // 1-based line number in the dump
	Text string // the offending line
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("brightness dump line %d does not match pixel pattern: %q", e.Line, e.Text)
}
