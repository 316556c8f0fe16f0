package pocket

import (
	"context"
	"math"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

// OutsidePeel clears a band opts.Width wide around the boundary of sh with
// rings offset outwards in steps of the tool's stepover, outermost ring
// first. The islands of sh are held parts inside the band; rings are
// clipped clear of them.
func (e *Engine) OutsidePeel(ctx context.Context, sink progress.Sink, sh shape.Shape, tl tool.Tool, opts Options) (*toolpath.Toolpaths, error) {
	const op = "pocket: outside peel"
	if err := sh.RequireClosed(op); err != nil {
		return nil, err
	}
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		return nil, camerr.InvalidInput(op, "peel width %g must be positive", opts.Width)
	}
	tr := progress.New(ctx, sink, op)
	if err := tr.Check(); err != nil {
		return nil, err
	}

	margin := math.Max(opts.Margin, 0)
	r := tl.Radius() + margin
	step := tl.StepoverDistance()
	base, err := e.boundary(sh, tl, true, opts.Dogbones)
	if err != nil {
		return nil, err
	}
	// Rings beyond the peel limit are not cut; the clip region reaches half
	// a step further so that the last ring is not split along its length.
	clip, err := e.k.Offset(base, opts.Width+step/2)
	if err != nil {
		return nil, err
	}
	if len(sh.Islands) > 0 {
		isl, err := e.islands(sh, r)
		if err != nil {
			return nil, err
		}
		if clip, err = e.k.Difference(clip, isl); err != nil {
			return nil, err
		}
	}
	clip = kernel.DropSlivers(clip, e.minArea())
	if len(clip) == 0 {
		return nil, camerr.EmptyResult(op, "islands cover the peel band")
	}

	ccw := expectedCCW(true, tl.Climb)
	var (
		levels [][]geom.Polygon
		pieces [][]geom.Point
	)
	for d := r; d <= opts.Width+1e-9; d += step {
		if err := tr.Step(d, opts.Width); err != nil {
			return nil, err
		}
		rings, err := e.k.Offset(base, d)
		if err != nil {
			return nil, err
		}
		rings = kernel.DropSlivers(rings, e.minArea())
		for j, p := range rings {
			if !ccw {
				rings[j] = p.Reversed()
			}
		}
		if len(levels) > 0 {
			rings = mergeToolpaths(levels[len(levels)-1], rings)
		}
		levels = append(levels, rings)
	}
	for i := len(levels) - 1; i >= 0; i-- {
		if err := tr.Check(); err != nil {
			return nil, err
		}
		lines := make([][]geom.Point, len(levels[i]))
		for j, p := range levels[i] {
			lines[j] = closedPoints(p)
		}
		got, err := e.k.ClipLines(lines, clip)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, got...)
	}
	if len(pieces) == 0 {
		return nil, camerr.EmptyResult(op, "peel width %g is narrower than the tool radius", opts.Width)
	}

	part, err := e.k.Offset(base, r-2*e.s.Epsilon())
	if err != nil {
		return nil, err
	}
	band, err := e.k.Difference(clip, part)
	if err != nil {
		return nil, err
	}
	reach, err := e.newRegion(band)
	if err != nil {
		return nil, err
	}
	out := toolpath.NewToolpaths(openToolpaths(joinPieces(pieces, tl.Diameter, tl.Diameter/8, reach), tl)...)
	tr.Done()
	return out, nil
}
