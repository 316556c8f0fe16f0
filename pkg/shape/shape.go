// Package shape models the closed and open outlines that operations cut:
// a boundary path with optional islands, and the dogbone corner relief
// applied to them.
package shape

import (
	"math"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
)

// Shape is a boundary with zero or more islands. Islands are regions inside
// the boundary that must not be cut. They should not overlap each other;
// overlapping islands are merged by the polygon kernel.
type Shape struct {
	Boundary geom.Path
	Islands  []geom.Path
}

// New returns a shape with the given boundary and islands.
func New(boundary geom.Path, islands ...geom.Path) Shape {
	return Shape{Boundary: boundary, Islands: islands}
}

// Rect returns a closed rectangle with its minimum corner at (x, y).
func Rect(x, y, w, h float64) Shape {
	return New(geom.PolylinePath([]geom.Point{
		{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h},
	}, true))
}

// Circle returns a closed circle as a single full-turn arc.
func Circle(center geom.Point, r float64, s geom.Settings) Shape {
	c := geom.Circle{Center: center, R: r}
	arc := geom.NewArc(c, 0, 2*math.Pi, s)
	return New(geom.NewPath(true, c.At(0), arc))
}

// Polygon returns a closed polygon through pts.
func Polygon(pts []geom.Point) Shape {
	return New(geom.PolylinePath(pts, true))
}

// Polyline returns an open polyline through pts.
func Polyline(pts []geom.Point) Shape {
	return New(geom.PolylinePath(pts, false))
}

// IsClosed reports whether the boundary is closed.
func (s Shape) IsClosed() bool { return s.Boundary.Closed }

// Validate checks that the boundary has at least two nodes and that every
// island is closed.
func (s Shape) Validate() error {
	const op = "shape: validate"
	if len(s.Boundary.Nodes) < 2 {
		return camerr.InvalidInput(op, "boundary has %d nodes, need at least 2", len(s.Boundary.Nodes))
	}
	for i, isl := range s.Islands {
		if !isl.Closed || len(isl.Nodes) < 2 {
			return camerr.InvalidInput(op, "island %d must be a closed path", i)
		}
	}
	return nil
}

// RequireClosed returns ErrInvalidInput unless s is valid and closed.
func (s Shape) RequireClosed(op string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !s.IsClosed() {
		return camerr.InvalidInput(op, "operation requires a closed boundary")
	}
	return nil
}

// Polygons linearizes the shape: the boundary wound counter-clockwise
// followed by the islands wound clockwise.
func (s Shape) Polygons(settings geom.Settings) []geom.Polygon {
	polys := []geom.Polygon{s.BoundaryPolygon(settings)}
	return append(polys, s.IslandPolygons(settings)...)
}

// BoundaryPolygon returns the linearized boundary wound counter-clockwise.
func (s Shape) BoundaryPolygon(settings geom.Settings) geom.Polygon {
	return s.Boundary.Linearize(settings).Oriented(true)
}

// IslandPolygons returns the linearized islands wound clockwise.
func (s Shape) IslandPolygons(settings geom.Settings) []geom.Polygon {
	out := make([]geom.Polygon, 0, len(s.Islands))
	for _, isl := range s.Islands {
		out = append(out, isl.Linearize(settings).Oriented(false))
	}
	return out
}

// Bounds returns the bounding box of the boundary.
func (s Shape) Bounds() geom.Box { return s.Boundary.Bounds() }
