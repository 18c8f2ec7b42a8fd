package level

// Config carries every tunable of the measurement pipeline. Components take
// it explicitly; there is no package-level mutable state.
type Config struct {
	// BrightThreshold opens the search region: the scan ignores everything
	// before the first sample exceeding this value, so dark or bright
	// background above the strip cannot be mistaken for the surface line.
	BrightThreshold int

	// ZeroRun is the number of consecutive exactly-zero samples required to
	// declare a transition. 1 accepts the first black pixel; 3 rejects
	// isolated noise pixels left over from edge detection.
	ZeroRun int

	// LitersPerCm converts the interpolated height into a volume.
	LitersPerCm float64

	// StripOffset and StripWidth select the vertical slice of the source
	// photo that contains the measurement scale. StripWidth 0 means the
	// whole image width.
	StripOffset int
	StripWidth  int
}

// DefaultConfig returns the production tuning for the reference installation.
func DefaultConfig() Config {
	return Config{
		BrightThreshold: 100,
		ZeroRun:         3,
		LitersPerCm:     35.37,
		StripOffset:     0,
		StripWidth:      0,
	}
}
