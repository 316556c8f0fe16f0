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

// AxisParallel clears the inside of sh with parallel lines at opts.Angle,
// spaced at most the tool's stepover apart. With opts.Zigzag every other
// row runs backwards so that rows can be linked without travel moves.
func (e *Engine) AxisParallel(ctx context.Context, sink progress.Sink, sh shape.Shape, tl tool.Tool, opts Options) (*toolpath.Toolpaths, error) {
	const op = "pocket: axis parallel"
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

	margin := math.Max(opts.Margin, 0)
	r := tl.Radius() + margin
	base, err := e.boundary(sh, tl, false, opts.Dogbones)
	if err != nil {
		return nil, err
	}
	area := base
	if len(sh.Islands) > 0 {
		isl, err := e.islands(sh, 0)
		if err != nil {
			return nil, err
		}
		if area, err = e.k.Difference(base, isl); err != nil {
			return nil, err
		}
	}
	clear, err := e.k.Offset(area, -r)
	if err != nil {
		return nil, err
	}
	clear = kernel.DropSlivers(clear, e.minArea())
	if len(clear) == 0 {
		return nil, camerr.EmptyResult(op, "tool %q does not fit", tl.Name)
	}

	rotated := make([]geom.Polygon, len(clear))
	for i, p := range clear {
		rotated[i] = p.Rotate(-opts.Angle)
	}
	b := kernel.Bounds(rotated)
	rows := max(1, int(math.Ceil(b.Height()/tl.StepoverDistance())))
	gap := b.Height() / float64(rows)
	x0, x1 := b.Min.X-tl.Diameter, b.Max.X+tl.Diameter

	var pieces [][]geom.Point
	for i := 0; i < rows; i++ {
		if err := tr.Step(float64(i), float64(rows)); err != nil {
			return nil, err
		}
		y := b.Min.Y + gap*(float64(i)+0.5)
		line := []geom.Point{geom.Pt(x0, y), geom.Pt(x1, y)}
		if opts.Zigzag && i%2 == 1 {
			line[0], line[1] = line[1], line[0]
		}
		got, err := e.k.ClipLines([][]geom.Point{line}, rotated)
		if err != nil {
			return nil, err
		}
		for _, pc := range got {
			for j, p := range pc {
				pc[j] = p.Rotate(opts.Angle)
			}
			pieces = append(pieces, pc)
		}
	}
	if len(pieces) == 0 {
		return nil, camerr.EmptyResult(op, "no raster line crosses the pocket")
	}

	reach, err := e.newRegion(clear)
	if err != nil {
		return nil, err
	}
	out := toolpath.NewToolpaths(openToolpaths(joinPieces(pieces, tl.Diameter, tl.Diameter/8, reach), tl)...)
	if opts.Finish {
		ccw := expectedCCW(false, tl.Climb)
		for _, p := range clear {
			out.Add(toolpath.New(ring(p, ccw), tl))
		}
	}
	tr.Done()
	return out, nil
}
