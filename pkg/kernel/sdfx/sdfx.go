// Package sdfx provides distance-field services over polygon regions using
// the github.com/deadsy/sdfx SDF-based CAD library: clearance queries for
// entry moves and DXF preview export of toolpaths.
package sdfx

import (
	"fmt"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Compile-time interface check.
var _ kernel.Clearance = (*Region)(nil)

// Region wraps an sdf.SDF2 built from a polygon set.
type Region struct {
	s sdf.SDF2
}

func toVecs(p geom.Polygon) []v2.Vec {
	vs := make([]v2.Vec, len(p))
	for i, q := range p {
		vs[i] = v2.Vec{X: q.X, Y: q.Y}
	}
	return vs
}

// NewRegion builds the distance field of a polygon set. Counter-clockwise
// rings are solid and clockwise rings are holes.
func NewRegion(polys []geom.Polygon) (*Region, error) {
	var solids, holes []sdf.SDF2
	for _, p := range polys {
		if len(p) < 3 {
			continue
		}
		ccw := p.IsCCW()
		s, err := sdf.Polygon2D(toVecs(p.Oriented(true)))
		if err != nil {
			return nil, fmt.Errorf("sdfx: polygon: %w", err)
		}
		if ccw {
			solids = append(solids, s)
		} else {
			holes = append(holes, s)
		}
	}
	if len(solids) == 0 {
		return nil, camerr.InvalidInput("sdfx: region", "no solid rings")
	}
	s := sdf.Union2D(solids...)
	if len(holes) > 0 {
		s = sdf.Difference2D(s, sdf.Union2D(holes...))
	}
	return &Region{s: s}, nil
}

// Distance returns the signed distance from p to the region's edge,
// negative inside.
func (r *Region) Distance(p geom.Point) float64 {
	return r.s.Evaluate(v2.Vec{X: p.X, Y: p.Y})
}

// Fits reports whether a circle of the given radius around c lies inside
// the region.
func (r *Region) Fits(c geom.Point, radius float64) bool {
	return r.Distance(c) <= -radius
}

// Bounds returns the bounding box of the region.
func (r *Region) Bounds() geom.Box {
	bb := r.s.BoundingBox()
	return geom.Box{
		Min: geom.Point{X: bb.Min.X, Y: bb.Min.Y},
		Max: geom.Point{X: bb.Max.X, Y: bb.Max.Y},
	}
}

// WriteDXF writes the linearized paths as DXF line entities to path.
func WriteDXF(path string, paths []geom.Path, s geom.Settings) error {
	d := render.NewDXF(path)
	for _, p := range paths {
		pts := p.Linearize(s)
		for i := 1; i < len(pts); i++ {
			d.Line(&sdf.Line2{toVec(pts[i-1]), toVec(pts[i])})
		}
		if p.Closed && len(pts) > 2 {
			d.Line(&sdf.Line2{toVec(pts[len(pts)-1]), toVec(pts[0])})
		}
	}
	if err := d.Save(); err != nil {
		return fmt.Errorf("sdfx: save dxf: %w", err)
	}
	return nil
}

func toVec(p geom.Point) v2.Vec { return v2.Vec{X: p.X, Y: p.Y} }
