package geom

import "math"

// Circle is a circle by centre and radius.
type Circle struct {
	Center Point
	R      float64
}

// At returns the point on c at angle a.
func (c Circle) At(a float64) Point {
	s, co := math.Sincos(a)
	return Point{c.Center.X + c.R*co, c.Center.Y + c.R*s}
}

// Angle returns the angle of p as seen from the centre of c.
func (c Circle) Angle(p Point) float64 {
	return p.Sub(c.Center).Angle()
}

// Polygon samples c into a CCW polygon with the given number of sides.
func (c Circle) Polygon(steps int) Polygon {
	steps = max(steps, 3)
	poly := make(Polygon, steps)
	for i := range poly {
		poly[i] = c.At(2 * math.Pi * float64(i) / float64(steps))
	}
	return poly
}

// CircleFrom3 returns the circle through a, b and c. It reports false when
// the points are collinear or coincident.
func CircleFrom3(a, b, c Point) (Circle, bool) {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	scale := math.Max(bx*bx+by*by, cx*cx+cy*cy)
	if scale == 0 || math.Abs(d) <= 1e-12*scale {
		return Circle{}, false
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := Point{a.X + ux, a.Y + uy}
	return Circle{Center: center, R: math.Hypot(ux, uy)}, true
}
