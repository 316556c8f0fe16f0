package geom

import "math"

// PathNode is one node of a Path: either a Point or an Arc. Each node
// continues from the end of the previous one.
type PathNode interface {
	pathNode()
	End() Point
}

var (
	_ PathNode = Point{}
	_ PathNode = Arc{}
)

// Path is a sequence of straight and circular segments. The first node is
// always a Point. A closed path has an implicit straight segment from the
// end of its last node back to the first node.
type Path struct {
	Nodes  []PathNode
	Closed bool
}

// NewPath builds a path from nodes. A leading Arc gets its start point
// prepended, and each arc's start is snapped to the end of the node before
// it so that the path is continuous.
func NewPath(closed bool, nodes ...PathNode) Path {
	out := make([]PathNode, 0, len(nodes)+1)
	for _, n := range nodes {
		switch n := n.(type) {
		case Point:
			out = append(out, n)
		case Arc:
			if len(out) == 0 {
				out = append(out, n.P1)
			}
			n.P1 = out[len(out)-1].End()
			out = append(out, n)
		}
	}
	return Path{Nodes: out, Closed: closed}
}

// PolylinePath returns the path through pts.
func PolylinePath(pts []Point, closed bool) Path {
	nodes := make([]PathNode, len(pts))
	for i, p := range pts {
		nodes[i] = p
	}
	return Path{Nodes: nodes, Closed: closed}
}

// IsEmpty reports whether p has no nodes.
func (p Path) IsEmpty() bool { return len(p.Nodes) == 0 }

// Start returns the first point of p.
func (p Path) Start() Point {
	if len(p.Nodes) == 0 {
		return Point{}
	}
	return p.Nodes[0].End()
}

// End returns the point where traversal of p finishes. For a closed path
// that is the start point.
func (p Path) End() Point {
	if len(p.Nodes) == 0 {
		return Point{}
	}
	if p.Closed {
		return p.Start()
	}
	return p.Nodes[len(p.Nodes)-1].End()
}

// Append returns a copy of p with nodes added at the end.
func (p Path) Append(nodes ...PathNode) Path {
	all := make([]PathNode, 0, len(p.Nodes)+len(nodes))
	all = append(all, p.Nodes...)
	all = append(all, nodes...)
	return NewPath(p.Closed, all...)
}

// segment is one piece of a path walk: a straight line from From to a
// Point, or an Arc starting at From.
type segment struct {
	From Point
	To   PathNode
	Len  float64
}

func (s segment) at(t float64) Point {
	switch to := s.To.(type) {
	case Arc:
		return to.At(t)
	case Point:
		if t == 1 {
			return to
		}
		return s.From.Lerp(to, t)
	}
	return s.From
}

func (s segment) closest(p Point) (float64, Point) {
	switch to := s.To.(type) {
	case Arc:
		return to.Closest(p)
	case Point:
		return ClosestOnSegment(p, s.From, to)
	}
	return 0, s.From
}

func (s segment) cut(t0, t1 float64) PathNode {
	switch to := s.To.(type) {
	case Arc:
		return to.Cut(t0, t1)
	}
	return s.at(t1)
}

// segments walks p including the closing segment of closed paths.
func (p Path) segments(yield func(segment) bool) {
	if len(p.Nodes) == 0 {
		return
	}
	prev := p.Nodes[0].End()
	for _, n := range p.Nodes[1:] {
		s := segment{From: prev, To: n}
		switch n := n.(type) {
		case Point:
			s.Len = prev.Dist(n)
		case Arc:
			s.Len = n.Length()
		}
		if !yield(s) {
			return
		}
		prev = n.End()
	}
	if p.Closed {
		first := p.Nodes[0].End()
		yield(segment{From: prev, To: first, Len: prev.Dist(first)})
	}
}

// Length returns the total length of p. Repeated points contribute nothing.
func (p Path) Length() float64 {
	var l float64
	for s := range p.segments {
		l += s.Len
	}
	return l
}

// PointAt returns the point at arc-length position pos, clamped to the
// path.
func (p Path) PointAt(pos float64) Point {
	if len(p.Nodes) == 0 {
		return Point{}
	}
	if pos <= 0 {
		return p.Start()
	}
	var walked float64
	last := p.Start()
	for s := range p.segments {
		if s.Len > 0 && pos <= walked+s.Len {
			return s.at((pos - walked) / s.Len)
		}
		walked += s.Len
		last = s.To.End()
	}
	return last
}

// Subpath returns the open path between arc-length positions start and end.
// Both are clamped to [0, Length]. Segments and arcs crossing a bound are
// trimmed.
func (p Path) Subpath(start, end float64) Path {
	if len(p.Nodes) == 0 {
		return Path{}
	}
	total := p.Length()
	start = math.Max(0, math.Min(start, total))
	end = math.Max(0, math.Min(end, total))
	if end <= start {
		return Path{Nodes: []PathNode{p.PointAt(start)}}
	}
	var (
		out    []PathNode
		walked float64
	)
	for s := range p.segments {
		lo, hi := walked, walked+s.Len
		walked = hi
		if s.Len == 0 || hi <= start {
			continue
		}
		if lo >= end {
			break
		}
		t0 := math.Max(0, (start-lo)/s.Len)
		t1 := math.Min(1, (end-lo)/s.Len)
		if len(out) == 0 {
			out = append(out, s.at(t0))
		}
		out = append(out, s.cut(t0, t1))
	}
	return NewPath(false, out...)
}

// Reverse returns p traversed backwards. Arcs swap their endpoints and
// angles. Reversing twice yields the original path.
func (p Path) Reverse() Path {
	n := len(p.Nodes)
	if n == 0 {
		return p
	}
	out := make([]PathNode, 0, n)
	out = append(out, p.Nodes[n-1].End())
	for i := n - 1; i > 0; i-- {
		switch node := p.Nodes[i].(type) {
		case Point:
			out = append(out, p.Nodes[i-1].End())
		case Arc:
			out = append(out, node.Reversed())
		}
	}
	return Path{Nodes: out, Closed: p.Closed}
}

// Closest returns the arc-length position on p nearest to q and the
// distance between them.
func (p Path) Closest(q Point) (pos, dist float64) {
	if len(p.Nodes) == 0 {
		return 0, math.Inf(1)
	}
	dist = q.Dist(p.Start())
	var walked float64
	for s := range p.segments {
		if s.Len > 0 {
			t, c := s.closest(q)
			if d := q.Dist(c); d < dist {
				pos, dist = walked+t*s.Len, d
			}
		}
		walked += s.Len
	}
	return pos, dist
}

// Bounds returns the bounding box of p. Arcs contribute their extremes.
func (p Path) Bounds() Box {
	b := EmptyBox()
	for _, n := range p.Nodes {
		switch n := n.(type) {
		case Point:
			b = b.Extend(n)
		case Arc:
			b = b.Union(n.Bounds())
		}
	}
	return b
}

// Linearize samples arcs into chords and returns the resulting ring or
// polyline. The closing segment of a closed path stays implicit.
func (p Path) Linearize(s Settings) Polygon {
	var out Polygon
	for _, n := range p.Nodes {
		switch n := n.(type) {
		case Point:
			if len(out) == 0 || out[len(out)-1] != n {
				out = append(out, n)
			}
		case Arc:
			if n.Steps <= 0 {
				n.Steps = s.ArcSteps(n.C.R, n.Span())
			}
			out = append(out, n.Points()[1:]...)
		}
	}
	if p.Closed && len(out) > 1 && out[0].Near(out[len(out)-1], 1e-9) {
		out = out[:len(out)-1]
	}
	return out
}

// HasArcs reports whether any node of p is an Arc.
func (p Path) HasArcs() bool {
	for _, n := range p.Nodes {
		if _, ok := n.(Arc); ok {
			return true
		}
	}
	return false
}
