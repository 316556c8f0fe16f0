// Package clipper implements the kernel.Kernel interface using the
// github.com/ctessum/go.clipper integer polygon clipping library.
package clipper

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	goclipper "github.com/ctessum/go.clipper"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ClipperKernel)(nil)

// maxOffsetMM is the largest offset issued to the library in one call.
// Larger offsets are split into halves, recursively.
const maxOffsetMM = 10

// ClipperKernel implements kernel.Kernel using go.clipper. Coordinates are
// scaled by Settings.Resolution and rounded onto the integer grid.
type ClipperKernel struct {
	settings geom.Settings
}

// New returns a ClipperKernel working at the resolution of s.
func New(s geom.Settings) *ClipperKernel {
	if s.Resolution <= 0 {
		s.Resolution = geom.DefaultResolution
	}
	return &ClipperKernel{settings: s}
}

// Settings returns the settings the kernel scales with.
func (k *ClipperKernel) Settings() geom.Settings { return k.settings }

// guard turns a panic inside the library into an error.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = camerr.InvalidInput("clipper: "+op, "%v", r)
	}
}

func (k *ClipperKernel) toPath(pts []geom.Point) goclipper.Path {
	res := k.settings.Resolution
	path := make(goclipper.Path, 0, len(pts))
	for _, p := range pts {
		ip := &goclipper.IntPoint{
			X: goclipper.CInt(math.Round(p.X * res)),
			Y: goclipper.CInt(math.Round(p.Y * res)),
		}
		if n := len(path); n > 0 && *path[n-1] == *ip {
			continue
		}
		path = append(path, ip)
	}
	return path
}

func (k *ClipperKernel) toPaths(polys []geom.Polygon) goclipper.Paths {
	paths := make(goclipper.Paths, 0, len(polys))
	for _, p := range polys {
		if path := k.toPath(p); len(path) >= 3 {
			paths = append(paths, path)
		}
	}
	return paths
}

func (k *ClipperKernel) fromPath(path goclipper.Path) []geom.Point {
	res := k.settings.Resolution
	pts := make([]geom.Point, len(path))
	for i, ip := range path {
		pts[i] = geom.Point{X: float64(ip.X) / res, Y: float64(ip.Y) / res}
	}
	return pts
}

func (k *ClipperKernel) fromPaths(paths goclipper.Paths) []geom.Polygon {
	polys := make([]geom.Polygon, 0, len(paths))
	for _, path := range paths {
		if len(path) >= 3 {
			polys = append(polys, k.fromPath(path))
		}
	}
	return polys
}

func (k *ClipperKernel) boolean(op string, ct goclipper.ClipType, a, b []geom.Polygon) (out []geom.Polygon, err error) {
	defer guard(op, &err)
	subj := k.toPaths(a)
	if len(subj) == 0 {
		return nil, nil
	}
	c := goclipper.NewClipper(goclipper.IoNone)
	c.AddPaths(subj, goclipper.PtSubject, true)
	if clip := k.toPaths(b); len(clip) > 0 {
		c.AddPaths(clip, goclipper.PtClip, true)
	}
	sol, ok := c.Execute1(ct, goclipper.PftNonZero, goclipper.PftNonZero)
	if !ok {
		return nil, fmt.Errorf("clipper: %s failed", op)
	}
	return k.fromPaths(sol), nil
}

// Union returns the union of a and b.
func (k *ClipperKernel) Union(a, b []geom.Polygon) ([]geom.Polygon, error) {
	return k.boolean("union", goclipper.CtUnion, append(slices.Clip(a), b...), nil)
}

// Difference returns a minus b.
func (k *ClipperKernel) Difference(a, b []geom.Polygon) ([]geom.Polygon, error) {
	return k.boolean("difference", goclipper.CtDifference, a, b)
}

// Intersection returns the intersection of a and b.
func (k *ClipperKernel) Intersection(a, b []geom.Polygon) ([]geom.Polygon, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return k.boolean("intersection", goclipper.CtIntersection, a, b)
}

// Offset grows or shrinks p by delta millimetres with round joins.
func (k *ClipperKernel) Offset(p []geom.Polygon, delta float64) (out []geom.Polygon, err error) {
	defer guard("offset", &err)
	paths := k.toPaths(p)
	if len(paths) == 0 {
		return nil, nil
	}
	if delta == 0 {
		return k.boolean("offset", goclipper.CtUnion, p, nil)
	}
	return k.fromPaths(k.offset(paths, delta*k.settings.Resolution)), nil
}

// offset applies an offset of d integer units, splitting large offsets in
// two so that the library never sees more than maxOffsetMM at once.
func (k *ClipperKernel) offset(paths goclipper.Paths, d float64) goclipper.Paths {
	if len(paths) == 0 {
		return nil
	}
	if math.Abs(d) > maxOffsetMM*k.settings.Resolution {
		return k.offset(k.offset(paths, d/2), d/2)
	}
	co := goclipper.NewClipperOffset()
	co.ArcTolerance = math.Max(k.settings.ArcTolerance*k.settings.Resolution, 0.25)
	co.AddPaths(paths, goclipper.JtRound, goclipper.EtClosedPolygon)
	return co.Execute(d)
}

// ClipLines returns the pieces of each line that lie inside clip. Pieces run
// in the direction of their source line and are ordered along it. A line
// that ends where it starts is cut open one grid unit before its start.
func (k *ClipperKernel) ClipLines(lines [][]geom.Point, clip []geom.Polygon) (out [][]geom.Point, err error) {
	defer guard("clip lines", &err)
	cp := k.toPaths(clip)
	if len(cp) == 0 {
		return nil, nil
	}
	for _, line := range lines {
		subj := openPath(k.toPath(line))
		if len(subj) < 2 {
			continue
		}
		src := k.fromPath(subj)
		c := goclipper.NewClipper(goclipper.IoNone)
		c.AddPath(subj, goclipper.PtSubject, false)
		c.AddPaths(cp, goclipper.PtClip, true)
		tree, ok := c.Execute2(goclipper.CtIntersection, goclipper.PftNonZero, goclipper.PftNonZero)
		if !ok {
			return nil, fmt.Errorf("clipper: clip lines failed")
		}
		type piece struct {
			pts []geom.Point
			at  float64
		}
		var pieces []piece
		for _, path := range c.OpenPathsFromPolyTree(tree) {
			pc := k.fromPath(path)
			if len(pc) < 2 {
				continue
			}
			start, end := along(src, pc[0]), along(src, pc[len(pc)-1])
			if end < start {
				slices.Reverse(pc)
				start = end
			}
			pieces = append(pieces, piece{pc, start})
		}
		slices.SortFunc(pieces, func(a, b piece) int { return cmp.Compare(a.at, b.at) })
		for _, p := range pieces {
			out = append(out, p.pts)
		}
	}
	return out, nil
}

// openPath drops a closing point equal to the start and stops the path one
// grid unit short of it instead. The library never terminates on an open
// path whose ends coincide.
func openPath(path goclipper.Path) goclipper.Path {
	n := len(path)
	if n < 3 || *path[0] != *path[n-1] {
		return path
	}
	path = path[:n-1]
	a, b := path[len(path)-1], path[0]
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l := math.Hypot(dx, dy)
	if l < 2 {
		return path
	}
	q := &goclipper.IntPoint{
		X: b.X - goclipper.CInt(math.Round(dx/l)),
		Y: b.Y - goclipper.CInt(math.Round(dy/l)),
	}
	if *q != *a && *q != *b {
		path = append(path, q)
	}
	return path
}

// along returns the arc length position on line of the point nearest q.
func along(line []geom.Point, q geom.Point) float64 {
	var acc, best, bestD float64
	bestD = math.Inf(1)
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		t, c := geom.ClosestOnSegment(q, a, b)
		seg := a.Dist(b)
		if d := c.Dist(q); d < bestD {
			best, bestD = acc+t*seg, d
		}
		acc += seg
	}
	return best
}
