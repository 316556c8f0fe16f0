// Package kernel defines the abstract polygon kernel interface.
// Implementations (clipper) provide boolean and offset operations on
// linearized polygons behind this interface. The kernel abstraction
// allows swapping backends without changing the toolpath engines.
package kernel

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// Kernel is the abstract polygon kernel interface.
//
// Polygon sets follow the non-zero winding rule: outer rings wind
// counter-clockwise and holes clockwise. Results use the same convention.
type Kernel interface {
	// Boolean operations
	Union(a, b []geom.Polygon) ([]geom.Polygon, error)
	Difference(a, b []geom.Polygon) ([]geom.Polygon, error)
	Intersection(a, b []geom.Polygon) ([]geom.Polygon, error)

	// Offset grows (delta > 0) or shrinks (delta < 0) a polygon set with
	// round joins.
	Offset(p []geom.Polygon, delta float64) ([]geom.Polygon, error)

	// ClipLines returns the parts of the open polylines that lie inside
	// clip.
	ClipLines(lines [][]geom.Point, clip []geom.Polygon) ([][]geom.Point, error)
}

// Clearance is a signed distance field over a region: negative inside,
// positive outside, with magnitude the distance to the region's edge.
type Clearance interface {
	Distance(p geom.Point) float64
}

// Inside reports whether inner lies entirely within outer, allowing slop
// square millimetres of disagreement from integer rounding.
func Inside(k Kernel, inner, outer []geom.Polygon, slop float64) (bool, error) {
	rest, err := k.Difference(inner, outer)
	if err != nil {
		return false, err
	}
	return math.Abs(geom.TotalArea(rest)) <= slop, nil
}

// Disjoint reports whether a and b do not overlap by more than slop square
// millimetres.
func Disjoint(k Kernel, a, b []geom.Polygon, slop float64) (bool, error) {
	common, err := k.Intersection(a, b)
	if err != nil {
		return false, err
	}
	return math.Abs(geom.TotalArea(common)) <= slop, nil
}

// DropSlivers returns the polygons whose absolute area exceeds minArea.
func DropSlivers(polys []geom.Polygon, minArea float64) []geom.Polygon {
	out := polys[:0:0]
	for _, p := range polys {
		if len(p) >= 3 && math.Abs(p.Area()) > minArea {
			out = append(out, p)
		}
	}
	return out
}

// Outers returns the counter-clockwise rings of polys.
func Outers(polys []geom.Polygon) []geom.Polygon {
	var out []geom.Polygon
	for _, p := range polys {
		if p.IsCCW() {
			out = append(out, p)
		}
	}
	return out
}

// Bounds returns the bounding box of a polygon set.
func Bounds(polys []geom.Polygon) geom.Box {
	b := geom.EmptyBox()
	for _, p := range polys {
		b = b.Union(p.Bounds())
	}
	return b
}
