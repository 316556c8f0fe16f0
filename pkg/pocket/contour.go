package pocket

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/trochoid"
)

// Contour follows the boundary of sh at the tool radius plus
// opts.Displacement, outside or inside it. Inside cuts keep clear of the
// islands but do not circle them. Rings are ordered smallest first.
func (e *Engine) Contour(ctx context.Context, sink progress.Sink, sh shape.Shape, tl tool.Tool, opts Options) (*toolpath.Toolpaths, error) {
	const op = "pocket: contour"
	if err := sh.RequireClosed(op); err != nil {
		return nil, err
	}
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	tr := progress.New(ctx, sink, op)
	if err := tr.Check(); err != nil {
		return nil, err
	}

	rings, err := e.contourRings(sh, tl, opts)
	if err != nil {
		return nil, err
	}
	if len(rings) == 0 {
		return nil, camerr.EmptyResult(op, "tool %q does not fit", tl.Name)
	}

	ccw := expectedCCW(opts.Outside, tl.Climb)
	out := toolpath.NewToolpaths()
	for i, p := range rings {
		if err := tr.Step(float64(i), float64(len(rings))); err != nil {
			return nil, err
		}
		path := ring(p, ccw)
		if !opts.Trochoidal {
			out.Add(toolpath.New(path, tl))
			continue
		}
		tp, err := e.trochoidal(tr.Sub(float64(i)/float64(len(rings)), float64(i+1)/float64(len(rings))), p, path, tl, opts)
		if err != nil {
			return nil, err
		}
		out.Add(tp)
	}
	tr.Done()
	return out, nil
}

func (e *Engine) contourRings(sh shape.Shape, tl tool.Tool, opts Options) ([]geom.Polygon, error) {
	base, err := e.boundary(sh, tl, opts.Outside, opts.Dogbones)
	if err != nil {
		return nil, err
	}
	d := tl.Radius() + opts.Displacement
	if !opts.Outside {
		d = -d
	}
	rings, err := e.k.Offset(base, d)
	if err != nil {
		return nil, err
	}
	if !opts.Outside && len(sh.Islands) > 0 {
		isl, err := e.islands(sh, tl.Radius()+opts.Displacement)
		if err != nil {
			return nil, err
		}
		if rings, err = e.k.Difference(rings, isl); err != nil {
			return nil, err
		}
		// Holes left around the islands are not cut.
		rings = slices.DeleteFunc(rings, func(p geom.Polygon) bool { return !p.IsCCW() })
	}
	rings = kernel.DropSlivers(rings, e.minArea())
	slices.SortStableFunc(rings, func(a, b geom.Polygon) int {
		return cmp.Compare(math.Abs(a.Area()), math.Abs(b.Area()))
	})
	return rings, nil
}

// trochoidal replaces a contour ring with loops whose far side follows it.
// The loop centres run on the ring offset by the loop radius away from the
// wall.
func (e *Engine) trochoidal(tr *progress.Tracker, p geom.Polygon, wall geom.Path, tl tool.Tool, opts Options) (*toolpath.Toolpath, error) {
	params := opts.Trochoid
	if params.CircleSize <= 0 {
		params.CircleSize = trochoid.DefaultParams().CircleSize
	}
	rl := params.CircleSize * tl.Diameter
	// Outer rings of an inside cut and holes of an outside cut have the wall
	// beyond them; the other rings have it within.
	d := -rl
	if opts.Outside != !p.IsCCW() {
		d = rl
	}
	centres, err := e.k.Offset([]geom.Polygon{p.Oriented(true)}, d)
	if err != nil {
		return nil, err
	}
	centres = kernel.DropSlivers(centres, e.minArea())
	if len(centres) == 0 {
		return toolpath.New(wall, tl), nil
	}
	inner := slices.MaxFunc(centres, func(a, b geom.Polygon) int {
		return cmp.Compare(math.Abs(a.Area()), math.Abs(b.Area()))
	})
	ccw := wall.Linearize(e.s).IsCCW()
	inner = startAt(inner.Oriented(ccw), wall.Start())
	res, err := trochoid.Generate(tr.Context(), progress.Func(func(f float64) { _ = tr.Step(f, 1) }),
		geom.PolylinePath(closedPoints(inner), false), wall, tl, params, e.s)
	if err != nil {
		return nil, err
	}
	return toolpath.New(res.Path, tl, toolpath.WithSegments(res.Segments)), nil
}
