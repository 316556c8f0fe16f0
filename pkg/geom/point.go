package geom

import "math"

// Point is a 2D point or vector. Equality is exact, so Points can be
// compared with == and used as map keys.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) pathNode() {}

// End returns p. A Point node ends where it is.
func (p Point) End() Point { return p }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }
func (p Point) Dot(q Point) float64   { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }
func (p Point) Len() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64  { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) Angle() float64        { return math.Atan2(p.Y, p.X) }
func (p Point) Perp() Point           { return Point{-p.Y, p.X} }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Unit returns p scaled to length 1, or the zero vector if p is zero.
func (p Point) Unit() Point {
	l := p.Len()
	if l == 0 {
		return Point{}
	}
	return Point{p.X / l, p.Y / l}
}

// Rotate rotates p about the origin by angle radians.
func (p Point) Rotate(angle float64) Point {
	s, c := math.Sincos(angle)
	return Point{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Near reports whether p and q are within tol of each other.
func (p Point) Near(q Point, tol float64) bool {
	return p.Dist(q) <= tol
}

// ClosestOnSegment returns the parameter t in [0, 1] of the point on segment
// a-b closest to p, and that point.
func ClosestOnSegment(p, a, b Point) (float64, Point) {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 == 0 {
		return 0, a
	}
	t := p.Sub(a).Dot(d) / l2
	t = math.Max(0, math.Min(1, t))
	return t, a.Lerp(b, t)
}

// SegmentIntersection returns the intersection of segments a1-a2 and b1-b2
// and whether one exists. Parallel segments never intersect.
func SegmentIntersection(a1, a2, b1, b2 Point) (Point, bool) {
	da := a2.Sub(a1)
	db := b2.Sub(b1)
	den := da.Cross(db)
	if den == 0 {
		return Point{}, false
	}
	w := b1.Sub(a1)
	t := w.Cross(db) / den
	u := w.Cross(da) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return a1.Lerp(a2, t), true
}

// NormalizeAngle maps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
