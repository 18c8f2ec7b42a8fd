package level

// LocateTransition finds the row of the liquid surface in a brightness
// profile using a two-phase scan.
//
// Phase 1 walks forward from the top until a sample exceeds
// cfg.BrightThreshold; rows before that are background above the strip and
// are never considered, however dark they are. Phase 2 continues from there
// and returns the first index that starts a run of cfg.ZeroRun consecutive
// exactly-zero samples. After edge-detection preprocessing the surface line
// is the first sustained true-black run past the initial bright scatter.
//
// Returns ErrNoTransition if either phase never triggers.
func LocateTransition(profile []int, cfg Config) (int, error) {
	start := -1
	for i, v := range profile {
		if v > cfg.BrightThreshold {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, ErrNoTransition
	}

	run := cfg.ZeroRun
	if run < 1 {
		run = 1
	}
	for i := start; i+run <= len(profile); i++ {
		if profile[i] != 0 {
			continue
		}
		sustained := true
		for j := 1; j < run; j++ {
			if profile[i+j] != 0 {
				sustained = false
				break
			}
		}
		if sustained {
			return i, nil
		}
	}
	return 0, ErrNoTransition
}
