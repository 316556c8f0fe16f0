package geom

import "math"

// Arc is a circular arc node. It continues from the previous node's end
// (P1) to P2 along C, sweeping from angle A1 to angle A2. The signed span
// A2-A1 is positive for counter-clockwise arcs.
//
// Both endpoints lie on C within arc-fitting tolerance and A2 is exactly
// A1 + Span(). Reversal swaps the endpoint and angle pairs, so reversing
// twice yields the original arc bit for bit.
type Arc struct {
	P1, P2 Point
	C      Circle
	A1, A2 float64
	Steps  int // chords used when rendering or linearizing
}

func (a Arc) pathNode() {}

// NewArc returns the arc on c starting at angle start with the given
// signed span. Steps is derived from s.
func NewArc(c Circle, start, span float64, s Settings) Arc {
	return Arc{
		P1:    c.At(start),
		P2:    c.At(start + span),
		C:     c,
		A1:    start,
		A2:    start + span,
		Steps: s.ArcSteps(c.R, span),
	}
}

// End returns P2.
func (a Arc) End() Point { return a.P2 }

// Span returns the signed angular span, CCW positive.
func (a Arc) Span() float64 { return a.A2 - a.A1 }

// CCW reports whether the arc runs counter-clockwise.
func (a Arc) CCW() bool { return a.A2 > a.A1 }

// Length returns the arc length.
func (a Arc) Length() float64 { return math.Abs(a.Span()) * a.C.R }

// At returns the point at fraction t of the sweep. The endpoints are
// returned exactly for t = 0 and t = 1.
func (a Arc) At(t float64) Point {
	switch t {
	case 0:
		return a.P1
	case 1:
		return a.P2
	}
	return a.C.At(a.A1 + a.Span()*t)
}

// Reversed returns the same arc traversed in the opposite direction.
func (a Arc) Reversed() Arc {
	return Arc{P1: a.P2, P2: a.P1, C: a.C, A1: a.A2, A2: a.A1, Steps: a.Steps}
}

// Cut returns the part of a between sweep fractions t0 and t1.
func (a Arc) Cut(t0, t1 float64) Arc {
	span := a.Span()
	steps := int(math.Ceil(float64(a.Steps) * math.Abs(t1-t0)))
	return Arc{
		P1:    a.At(t0),
		P2:    a.At(t1),
		C:     a.C,
		A1:    a.A1 + span*t0,
		A2:    a.A1 + span*t1,
		Steps: max(1, steps),
	}
}

// Points samples the arc into Steps chords, including both endpoints.
func (a Arc) Points() []Point {
	n := max(1, a.Steps)
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = a.At(float64(i) / float64(n))
	}
	return pts
}

// sweepFraction returns the fraction of the sweep at which angle ang lies,
// and whether it lies within the sweep at all.
func (a Arc) sweepFraction(ang float64) (float64, bool) {
	span := a.Span()
	if span == 0 {
		return 0, false
	}
	d := ang - a.A1
	if span > 0 {
		d = math.Mod(d, 2*math.Pi)
		if d < 0 {
			d += 2 * math.Pi
		}
	} else {
		d = math.Mod(d, 2*math.Pi)
		if d > 0 {
			d -= 2 * math.Pi
		}
	}
	t := d / span
	return t, t >= 0 && t <= 1
}

// Closest returns the sweep fraction and the point on a closest to p.
func (a Arc) Closest(p Point) (float64, Point) {
	if p != a.C.Center {
		if t, ok := a.sweepFraction(a.C.Angle(p)); ok {
			return t, a.At(t)
		}
	}
	if p.Dist(a.P1) <= p.Dist(a.P2) {
		return 0, a.P1
	}
	return 1, a.P2
}

// Bounds returns the tight bounding box of the arc.
func (a Arc) Bounds() Box {
	b := EmptyBox().Extend(a.P1).Extend(a.P2)
	if math.Abs(a.Span()) >= 2*math.Pi {
		r := Point{a.C.R, a.C.R}
		return b.Extend(a.C.Center.Sub(r)).Extend(a.C.Center.Add(r))
	}
	for k := 0; k < 4; k++ {
		ang := float64(k) * math.Pi / 2
		if _, ok := a.sweepFraction(ang); ok {
			b = b.Extend(a.C.At(ang))
		}
	}
	return b
}
