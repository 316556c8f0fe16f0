// Package pocket computes the 2.5D tool-centre paths of contour, pocket,
// raster and peel operations on top of a polygon kernel.
//
// Every engine polls its context once per outer iteration and reports
// progress through a progress.Sink. A cancelled run returns an error
// matching camerr.ErrCancelled and no partial result.
package pocket

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/trochoid"
)

// Options configure an engine run. Each engine reads the fields that apply
// to it.
type Options struct {
	Outside      bool    // contour: cut outside the boundary
	Displacement float64 // contour: extra offset away from the material
	Dogbones     bool    // add corner relief before offsetting
	Margin       float64 // pocket, raster, peel: stock left on walls and islands

	Angle  float64 // raster: line angle in radians
	Zigzag bool    // raster: alternate direction per row
	Finish bool    // raster: finishing pass around the cleared region

	Width float64 // peel: how far beyond the boundary to clear

	Trochoidal bool // contour: cut with trochoidal loops
	Trochoid   trochoid.Params
}

// Engine runs the toolpath engines against one kernel and settings.
type Engine struct {
	k kernel.Kernel
	s geom.Settings
}

// New returns an engine using k for polygon operations.
func New(k kernel.Kernel, s geom.Settings) *Engine {
	return &Engine{k: k, s: s}
}

// expectedCCW returns the winding a cut ring should have. Climb milling with
// a clockwise spindle runs counter-clockwise inside material and clockwise
// around it.
func expectedCCW(outside, climb bool) bool {
	return outside != climb
}

// minArea is the smallest ring area kept after a kernel operation.
func (e *Engine) minArea() float64 {
	eps := e.s.Epsilon()
	return 4 * eps * eps
}

// boundary returns the linearized boundary of sh, with dogbone relief when
// requested.
func (e *Engine) boundary(sh shape.Shape, tl tool.Tool, outside, dogbones bool) ([]geom.Polygon, error) {
	if dogbones {
		return shape.Dogbones(e.k, sh.Boundary, tl.Radius(), outside, e.s)
	}
	return []geom.Polygon{sh.BoundaryPolygon(e.s)}, nil
}

// islands returns the islands of sh wound counter-clockwise, grown by d.
func (e *Engine) islands(sh shape.Shape, d float64) ([]geom.Polygon, error) {
	if len(sh.Islands) == 0 {
		return nil, nil
	}
	polys := sh.IslandPolygons(e.s)
	for i, p := range polys {
		polys[i] = p.Oriented(true)
	}
	return e.k.Offset(polys, d)
}

// ring turns a kernel ring into a closed path wound for the cut. Holes of
// the region keep the opposite winding to its outer rings.
func ring(p geom.Polygon, ccw bool) geom.Path {
	if !ccw {
		p = p.Reversed()
	}
	return p.Path()
}

// closedPoints returns the ring as an explicit polyline ending where it
// starts.
func closedPoints(p geom.Polygon) []geom.Point {
	out := make([]geom.Point, 0, len(p)+1)
	out = append(out, p...)
	return append(out, p[0])
}

// closestOn returns the point of ring p nearest to q, the index of the edge
// it lies on and its distance from q.
func closestOn(p geom.Polygon, q geom.Point) (geom.Point, int, float64) {
	best, edge, bestD := geom.Point{}, 0, math.Inf(1)
	n := len(p)
	for i := range p {
		_, c := geom.ClosestOnSegment(q, p[i], p[(i+1)%n])
		if d := c.Dist(q); d < bestD {
			best, edge, bestD = c, i, d
		}
	}
	return best, edge, bestD
}

// startAt returns p rotated to begin at the point of its outline closest
// to q, inserting that point when it falls inside an edge.
func startAt(p geom.Polygon, q geom.Point) geom.Polygon {
	n := len(p)
	if n == 0 {
		return p
	}
	best, edge, _ := closestOn(p, q)
	out := make(geom.Polygon, 0, n+1)
	out = append(out, best)
	for j := 1; j <= n; j++ {
		v := p[(edge+j)%n]
		if v != best && v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// region is a clearance query over the area the tool centre may visit.
type region struct {
	clear *sdfx.Region
	tol   float64
}

func (e *Engine) newRegion(polys []geom.Polygon) (*region, error) {
	r, err := sdfx.NewRegion(polys)
	if err != nil {
		return nil, err
	}
	return &region{clear: r, tol: 2 * e.s.Epsilon()}, nil
}

// covers reports whether the straight move from a to b stays inside the
// region, sampling every step millimetres.
func (r *region) covers(a, b geom.Point, step float64) bool {
	n := max(1, int(math.Ceil(a.Dist(b)/step)))
	for i := 0; i <= n; i++ {
		if r.clear.Distance(a.Lerp(b, float64(i)/float64(n))) > r.tol {
			return false
		}
	}
	return true
}

// joinPieces concatenates consecutive open pieces whose gap is at most
// maxGap and whose connecting move stays inside r.
func joinPieces(pieces [][]geom.Point, maxGap, sample float64, r *region) [][]geom.Point {
	var out [][]geom.Point
	for _, pc := range pieces {
		if len(out) > 0 {
			last := out[len(out)-1]
			end := last[len(last)-1]
			if end.Dist(pc[0]) <= maxGap && r.covers(end, pc[0], sample) {
				if end == pc[0] {
					pc = pc[1:]
				}
				out[len(out)-1] = append(last, pc...)
				continue
			}
		}
		out = append(out, append([]geom.Point(nil), pc...))
	}
	return out
}

// openToolpaths wraps each piece in a toolpath.
func openToolpaths(pieces [][]geom.Point, tl tool.Tool) []toolpath.Item {
	items := make([]toolpath.Item, 0, len(pieces))
	for _, pc := range pieces {
		items = append(items, toolpath.New(geom.PolylinePath(pc, false), tl))
	}
	return items
}
