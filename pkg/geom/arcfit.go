package geom

import "math"

// CircleFitter replaces runs of polyline points with circular arcs where
// the points lie on a circle within Threshold. The result is lossy and is
// only used to shorten emitted G-code.
type CircleFitter struct {
	Settings  Settings
	Threshold float64 // max radial deviation (max minus min) of an accepted fit
	MaxSpan   float64 // largest sweep accepted in a single fit, radians
	MergeSpan float64 // largest sweep two adjacent arcs may be merged into
	MaxStep   float64 // largest angle between consecutive samples
	MaxRadius float64 // fits with a larger radius are treated as straight
	MinPoints int     // fewest samples an arc may replace
}

// NewCircleFitter returns a fitter whose threshold is two grid units, wide
// enough to accept points the polygon kernel has rounded to its grid.
func NewCircleFitter(s Settings) *CircleFitter {
	return &CircleFitter{
		Settings:  s,
		Threshold: 2 * s.Epsilon(),
		MaxSpan:   math.Pi * 1.5,
		MergeSpan: math.Pi,
		MaxStep:   math.Pi / 9,
		MaxRadius: 1000,
		MinPoints: 5,
	}
}

type fitResult int

const (
	fitRejected fitResult = iota
	fitAccepted
	fitTooLong
)

// piece is a fitted or unfitted run of the input, covering points lo..hi.
type piece struct {
	lo, hi int
	arc    Arc
	err    float64
	fitted bool
}

// Simplify returns nodes for pts: the first point followed by Points and
// Arcs. When no run of points fits an arc, the points are returned as they
// are, minus exact repeats.
func (f *CircleFitter) Simplify(pts []Point) []PathNode {
	pts = dedupe(pts)
	if len(pts) == 0 {
		return nil
	}
	out := []PathNode{pts[0]}
	if len(pts) < f.MinPoints {
		for _, p := range pts[1:] {
			out = append(out, p)
		}
		return out
	}
	pieces := f.subdivide(pts, 0, len(pts)-1, nil)
	pieces = f.coalesce(pts, f.extend(pts, pieces))
	for _, pc := range pieces {
		if pc.fitted {
			out = append(out, pc.arc)
			continue
		}
		for i := pc.lo + 1; i <= pc.hi; i++ {
			out = append(out, pts[i])
		}
	}
	return out
}

func (f *CircleFitter) subdivide(pts []Point, lo, hi int, out []piece) []piece {
	arc, e, sweep, res := f.fit(pts[lo : hi+1])
	switch res {
	case fitAccepted:
		return append(out, piece{lo: lo, hi: hi, arc: arc, err: e, fitted: true})
	case fitTooLong:
		k := int(math.Ceil(math.Abs(sweep) / (f.MaxSpan / 2)))
		if k > 1 && hi-lo >= k*(f.MinPoints-1) {
			prev := lo
			for i := 1; i <= k; i++ {
				next := lo + (hi-lo)*i/k
				out = f.subdivide(pts, prev, next, out)
				prev = next
			}
			return out
		}
	}
	if hi-lo+1 < 2*f.MinPoints-1 {
		return append(out, piece{lo: lo, hi: hi})
	}
	mid := (lo + hi) / 2
	out = f.subdivide(pts, lo, mid, out)
	return f.subdivide(pts, mid, hi, out)
}

// extend grows each fitted arc one point at a time into the unfitted points
// around it, for as long as the fit still holds.
func (f *CircleFitter) extend(pts []Point, pieces []piece) []piece {
	var arcs []piece
	for _, pc := range pieces {
		if pc.fitted {
			arcs = append(arcs, pc)
		}
	}
	for i := range arcs {
		lower, upper := 0, len(pts)-1
		if i > 0 {
			lower = arcs[i-1].hi
		}
		if i+1 < len(arcs) {
			upper = arcs[i+1].lo
		}
		a := &arcs[i]
		for a.lo > lower {
			arc, e, _, res := f.fit(pts[a.lo-1 : a.hi+1])
			if res != fitAccepted {
				break
			}
			a.lo, a.arc, a.err = a.lo-1, arc, e
		}
		for a.hi < upper {
			arc, e, _, res := f.fit(pts[a.lo : a.hi+2])
			if res != fitAccepted {
				break
			}
			a.hi, a.arc, a.err = a.hi+1, arc, e
		}
	}
	var out []piece
	prev := 0
	for _, a := range arcs {
		if a.lo > prev {
			out = append(out, piece{lo: prev, hi: a.lo})
		}
		out = append(out, a)
		prev = a.hi
	}
	if prev < len(pts)-1 {
		out = append(out, piece{lo: prev, hi: len(pts) - 1})
	}
	return out
}

// coalesce merges neighbouring arcs when the merged fit is not much worse
// than either part.
func (f *CircleFitter) coalesce(pts []Point, pieces []piece) []piece {
	if len(pieces) < 2 {
		return pieces
	}
	out := []piece{pieces[0]}
	for _, next := range pieces[1:] {
		cur := &out[len(out)-1]
		if cur.fitted && next.fitted {
			arc, e, sweep, res := f.fit(pts[cur.lo : next.hi+1])
			limit := 2 * math.Max(math.Max(cur.err, next.err), f.Threshold/4)
			if res == fitAccepted && math.Abs(sweep) <= f.MergeSpan && e <= limit {
				*cur = piece{lo: cur.lo, hi: next.hi, arc: arc, err: e, fitted: true}
				continue
			}
		}
		out = append(out, next)
	}
	return out
}

// fit tries to fit one arc through pts. The circle is taken through the
// first, middle and last samples, or through the samples at one and two
// thirds when the run closes on itself.
func (f *CircleFitter) fit(pts []Point) (Arc, float64, float64, fitResult) {
	n := len(pts)
	if n < f.MinPoints {
		return Arc{}, 0, 0, fitRejected
	}
	first, last := pts[0], pts[n-1]
	c, ok := CircleFrom3(first, pts[n/2], last)
	if first.Near(last, f.Threshold) {
		c, ok = CircleFrom3(first, pts[n/3], pts[2*n/3])
	}
	if !ok || c.R > f.MaxRadius {
		return Arc{}, 0, 0, fitRejected
	}

	var sweep float64
	var sign int
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range pts {
		d := p.Dist(c.Center) - c.R
		lo, hi = math.Min(lo, d), math.Max(hi, d)
		if i == 0 {
			continue
		}
		u := pts[i-1].Sub(c.Center)
		v := p.Sub(c.Center)
		cross := u.Cross(v)
		s := 1
		if cross < 0 {
			s = -1
		}
		if cross == 0 || (sign != 0 && s != sign) {
			return Arc{}, 0, 0, fitRejected
		}
		sign = s
		step := math.Atan2(cross, u.Dot(v))
		if math.Abs(step) > f.MaxStep {
			return Arc{}, 0, 0, fitRejected
		}
		sweep += step
	}
	e := hi - lo
	if math.Abs(sweep) > f.MaxSpan {
		return Arc{}, e, sweep, fitTooLong
	}
	if e > f.Threshold {
		return Arc{}, e, sweep, fitRejected
	}
	a1 := c.Angle(first)
	arc := Arc{
		P1:    first,
		P2:    last,
		C:     c,
		A1:    a1,
		A2:    a1 + sweep,
		Steps: f.Settings.ArcSteps(c.R, sweep),
	}
	return arc, e, sweep, fitAccepted
}

func dedupe(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	return out
}

// FitArcs runs the circle fitter over every run of straight segments in p.
// Existing arcs are kept. The closing segment of a closed path takes part in
// the last run.
func FitArcs(p Path, s Settings) Path {
	if len(p.Nodes) < 2 {
		return p
	}
	f := NewCircleFitter(s)
	return rewriteRuns(p, func(run []Point) []PathNode {
		return f.Simplify(run)
	})
}

// SimplifyLines removes points that deviate less than tol from the straight
// line through their neighbours (Ramer-Douglas-Peucker). Arcs, path ends and
// the closed flag are kept.
func SimplifyLines(p Path, tol float64) Path {
	if len(p.Nodes) < 3 {
		return p
	}
	return rewriteRuns(p, func(run []Point) []PathNode {
		keep := rdp(run, tol)
		nodes := make([]PathNode, len(keep))
		for i, q := range keep {
			nodes[i] = q
		}
		return nodes
	})
}

// rewriteRuns splits p at its arcs, rewrites each run of points with fn and
// reassembles the path. fn receives the run including its anchor point and
// must return nodes starting with that anchor.
func rewriteRuns(p Path, fn func([]Point) []PathNode) Path {
	first := p.Nodes[0].End()
	var out []PathNode
	run := []Point{first}
	flush := func() {
		nodes := fn(run)
		if len(out) > 0 && len(nodes) > 0 {
			nodes = nodes[1:]
		}
		out = append(out, nodes...)
	}
	for _, n := range p.Nodes[1:] {
		switch n := n.(type) {
		case Point:
			run = append(run, n)
		case Arc:
			flush()
			out = append(out, n)
			run = []Point{n.P2}
		}
	}
	if p.Closed {
		run = append(run, first)
	}
	flush()
	if p.Closed && len(out) > 1 {
		if q, ok := out[len(out)-1].(Point); ok && q == first {
			out = out[:len(out)-1]
		}
	}
	return NewPath(p.Closed, out...)
}

func rdp(pts []Point, tol float64) []Point {
	if len(pts) < 3 {
		return pts
	}
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	var mark func(lo, hi int)
	mark = func(lo, hi int) {
		if hi-lo < 2 {
			return
		}
		worst, at := -1.0, -1
		for i := lo + 1; i < hi; i++ {
			_, c := ClosestOnSegment(pts[i], pts[lo], pts[hi])
			if d := pts[i].Dist(c); d > worst {
				worst, at = d, i
			}
		}
		if worst > tol {
			keep[at] = true
			mark(lo, at)
			mark(at, hi)
		}
	}
	mark(0, len(pts)-1)
	out := make([]Point, 0, len(pts))
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}
