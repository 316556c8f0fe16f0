package geom

import "math"

// Polygon is a linearized ring. The closing edge from the last vertex back
// to the first is implicit.
type Polygon []Point

// Area returns the signed area of the ring, positive when counter-clockwise.
func (p Polygon) Area() float64 {
	var a float64
	for i, v := range p {
		w := p[(i+1)%len(p)]
		a += v.Cross(w)
	}
	return a / 2
}

// IsCCW reports whether the ring winds counter-clockwise.
func (p Polygon) IsCCW() bool { return p.Area() > 0 }

// Reversed returns the ring with its vertex order reversed.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Oriented returns p wound counter-clockwise when ccw is set and clockwise
// otherwise, reversing it if its signed area disagrees.
func (p Polygon) Oriented(ccw bool) Polygon {
	if p.IsCCW() == ccw {
		return p
	}
	return p.Reversed()
}

// Contains reports whether q lies inside the ring by the even-odd rule.
func (p Polygon) Contains(q Point) bool {
	in := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := a.X + (q.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if q.X < x {
				in = !in
			}
		}
	}
	return in
}

// Perimeter returns the length of the closed ring.
func (p Polygon) Perimeter() float64 {
	var l float64
	for i, v := range p {
		l += v.Dist(p[(i+1)%len(p)])
	}
	return l
}

// Bounds returns the bounding box of the vertices.
func (p Polygon) Bounds() Box {
	b := EmptyBox()
	for _, v := range p {
		b = b.Extend(v)
	}
	return b
}

// Path returns the ring as a closed Path.
func (p Polygon) Path() Path { return PolylinePath(p, true) }

// Translate returns p moved by d.
func (p Polygon) Translate(d Point) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(d)
	}
	return out
}

// Rotate returns p rotated about the origin by angle radians.
func (p Polygon) Rotate(angle float64) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Rotate(angle)
	}
	return out
}

// TotalArea sums the signed areas of polys. Holes wound clockwise subtract.
func TotalArea(polys []Polygon) float64 {
	var a float64
	for _, p := range polys {
		a += p.Area()
	}
	return a
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point
}

// EmptyBox returns a box that contains nothing and absorbs anything it is
// extended with.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{Min: Point{inf, inf}, Max: Point{-inf, -inf}}
}

// IsEmpty reports whether b has never been extended.
func (b Box) IsEmpty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

// Extend returns b grown to include p.
func (b Box) Extend(p Point) Box {
	return Box{
		Min: Point{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)},
		Max: Point{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)},
	}
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Grow returns b inflated by d on every side.
func (b Box) Grow(d float64) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{Min: Point{b.Min.X - d, b.Min.Y - d}, Max: Point{b.Max.X + d, b.Max.Y + d}}
}

func (b Box) Width() float64  { return b.Max.X - b.Min.X }
func (b Box) Height() float64 { return b.Max.Y - b.Min.Y }
func (b Box) Center() Point   { return b.Min.Lerp(b.Max, 0.5) }

// ContainsPoint reports whether p lies inside or on the edge of b.
func (b Box) ContainsPoint(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Contains reports whether o lies entirely within b.
func (b Box) Contains(o Box) bool {
	if o.IsEmpty() {
		return true
	}
	return b.ContainsPoint(o.Min) && b.ContainsPoint(o.Max)
}

// Area returns the area of b, or zero if it is empty.
func (b Box) Area() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Width() * b.Height()
}
