package geom

import "math"

// DefaultResolution is the number of integer grid units per millimetre used
// when converting to the polygon kernel.
const DefaultResolution = 64

// Settings is the resolution and simplification configuration shared by an
// entire computation. It is passed by value and never mutated.
type Settings struct {
	Resolution    float64 `toml:"resolution"`     // integer units per mm
	SimplifyArcs  bool    `toml:"simplify_arcs"`  // arc-fit toolpaths before emission
	SimplifyLines bool    `toml:"simplify_lines"` // drop collinear points before emission
	ArcTolerance  float64 `toml:"arc_tolerance"`  // max chord deviation when sampling arcs, mm
}

// DefaultSettings returns the settings used when a job does not specify any.
func DefaultSettings() Settings {
	return Settings{
		Resolution:    DefaultResolution,
		SimplifyArcs:  true,
		SimplifyLines: true,
		ArcTolerance:  0.01,
	}
}

// Epsilon is the size of one integer grid unit in millimetres.
func (s Settings) Epsilon() float64 {
	if s.Resolution <= 0 {
		return 1.0 / DefaultResolution
	}
	return 1 / s.Resolution
}

// ArcSteps returns the number of chords needed to sample an arc of radius r
// and signed span within the arc tolerance.
func (s Settings) ArcSteps(r, span float64) int {
	tol := s.ArcTolerance
	if tol <= 0 {
		tol = s.Epsilon()
	}
	span = math.Abs(span)
	if r <= tol || span == 0 {
		return 1
	}
	step := 2 * math.Acos(1-tol/r)
	if step <= 0 || math.IsNaN(step) {
		return 1
	}
	return max(1, int(math.Ceil(span/step)))
}
