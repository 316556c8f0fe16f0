// Package trochoid generates pseudo-trochoidal toolpaths: a chain of small
// circular loops whose far sides follow a wall, so that the cutter never
// takes a full-width bite.
package trochoid

import (
	"context"
	"math"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

// Params tune the loop placement. They are heuristics; none of them change
// what the generator produces in kind.
type Params struct {
	CircleSize   float64 `toml:"circle_size"`    // loop radius as a fraction of tool diameter
	Tolerance    float64 `toml:"tolerance"`      // allowed far-side divergence in mm; 0 means 0.1 × diameter
	ShrinkFactor float64 `toml:"shrink_factor"`  // step multiplier on each retry
	MinStepRatio float64 `toml:"min_step_ratio"` // smallest step, as a fraction of the nominal step, before falling back
	FarSideRatio float64 `toml:"far_side_ratio"` // part of the loop radius counted as reaching the wall
}

// DefaultParams returns the usual loop parameters.
func DefaultParams() Params {
	return Params{
		CircleSize:   0.5,
		ShrinkFactor: 0.9,
		MinStepRatio: 0.1,
		FarSideRatio: 0.95,
	}
}

// Result is a trochoidal path and the arc-length extent of each loop.
type Result struct {
	Path     geom.Path
	Segments []toolpath.Segment
}

// builder accumulates path nodes and tracks their length.
type builder struct {
	nodes  []geom.PathNode
	length float64
}

func (b *builder) end() geom.Point { return b.nodes[len(b.nodes)-1].End() }

func (b *builder) lineTo(p geom.Point) {
	if len(b.nodes) == 0 {
		b.nodes = append(b.nodes, p)
		return
	}
	if e := b.end(); e != p {
		b.length += e.Dist(p)
		b.nodes = append(b.nodes, p)
	}
}

func (b *builder) arc(a geom.Arc) {
	a.P1 = b.end()
	b.length += a.Length()
	b.nodes = append(b.nodes, a)
}

func (b *builder) follow(p geom.Path) {
	for i, n := range p.Nodes {
		switch n := n.(type) {
		case geom.Point:
			b.lineTo(n)
		case geom.Arc:
			if i == 0 {
				b.lineTo(n.P1)
			}
			b.arc(n)
		}
	}
}

// Generate walks inner in steps of the tool's stepover and places a loop at
// each step whose far side touches outer. When the far side jumps by more
// than the tolerance, for example around a corner of outer, the step is
// shrunk and retried. Once the step falls below its floor the generator
// stops looping for that stretch and follows outer directly.
func Generate(ctx context.Context, sink progress.Sink, inner, outer geom.Path, tl tool.Tool, p Params, s geom.Settings) (Result, error) {
	const op = "trochoid: generate"
	if err := tl.Validate(); err != nil {
		return Result{}, err
	}
	if len(inner.Nodes) < 2 || len(outer.Nodes) < 2 {
		return Result{}, camerr.InvalidInput(op, "paths need at least two nodes")
	}
	p = p.withDefaults(tl)
	tr := progress.New(ctx, sink, op)
	log := logging.Logger()

	total := inner.Length()
	nominal := tl.StepoverDistance()
	radius := p.CircleSize * tl.Diameter
	ccw := tl.Climb
	span := math.Pi
	if !ccw {
		span = -math.Pi
	}

	var (
		b       builder
		segs    []toolpath.Segment
		prevFar geom.Point
		prevOut float64
		first   = true
	)
	place := func(pos float64) (center, far geom.Point, outPos float64) {
		c := inner.PointAt(pos)
		outPos, _ = outer.Closest(c)
		q := outer.PointAt(outPos)
		dir := q.Sub(c).Unit()
		if dir == (geom.Point{}) {
			dir = inner.PointAt(math.Min(pos+s.Epsilon(), total)).Sub(c).Unit().Perp()
		}
		center = q.Sub(dir.Scale(radius))
		far = center.Add(dir.Scale(radius * p.FarSideRatio))
		return center, far, outPos
	}
	loop := func(center geom.Point, outPos float64) {
		circle := geom.Circle{Center: center, R: radius}
		q := outer.PointAt(outPos)
		start := circle.Angle(q) + math.Pi
		entry := circle.At(start)
		segStart := b.length
		b.lineTo(entry)
		half := geom.NewArc(circle, start, span, s)
		b.arc(half)
		b.arc(geom.NewArc(circle, start+span, span, s))
		segs = append(segs, toolpath.Segment{
			StartLen: segStart,
			EndLen:   b.length,
			Entry:    &toolpath.HelicalEntry{Center: center, Radius: radius},
		})
	}

	pos, step := 0.0, nominal
	for {
		if err := tr.Step(pos, total); err != nil {
			return Result{}, err
		}
		next := math.Min(pos+step, total)
		if first {
			next = 0
		}
		center, far, outPos := place(next)
		if !first && far.Dist(prevFar) > step+p.Tolerance {
			step *= p.ShrinkFactor
			if step >= p.MinStepRatio*nominal {
				continue
			}
			log.Debug("trochoid step fell below floor, following wall",
				"err", camerr.NonConvergence(op, "step %.4f below %.4f at %.3f", step, p.MinStepRatio*nominal, next))
			for _, w := range wallBetween(outer, prevOut, outPos) {
				b.follow(w)
			}
		}
		loop(center, outPos)
		prevFar, prevOut, first = far, outPos, false
		pos, step = next, nominal
		if pos >= total {
			break
		}
	}
	tr.Done()
	return Result{Path: geom.NewPath(false, b.nodes...), Segments: segs}, nil
}

func (p Params) withDefaults(tl tool.Tool) Params {
	d := DefaultParams()
	if p.CircleSize <= 0 {
		p.CircleSize = d.CircleSize
	}
	if p.ShrinkFactor <= 0 || p.ShrinkFactor >= 1 {
		p.ShrinkFactor = d.ShrinkFactor
	}
	if p.MinStepRatio <= 0 {
		p.MinStepRatio = d.MinStepRatio
	}
	if p.FarSideRatio <= 0 {
		p.FarSideRatio = d.FarSideRatio
	}
	if p.Tolerance <= 0 {
		p.Tolerance = 0.1 * tl.Diameter
	}
	return p
}

// wallBetween returns the stretch of p from arc-length position from to
// position to. On a closed path it takes the shorter way round, which may
// cross the seam and come back as two pieces.
func wallBetween(p geom.Path, from, to float64) []geom.Path {
	if p.Closed {
		total := p.Length()
		switch {
		case to-from > total/2:
			return []geom.Path{p.Subpath(0, from).Reverse(), p.Subpath(to, total).Reverse()}
		case from-to > total/2:
			return []geom.Path{p.Subpath(from, total), p.Subpath(0, to)}
		}
	}
	if from <= to {
		return []geom.Path{p.Subpath(from, to)}
	}
	return []geom.Path{p.Subpath(to, from).Reverse()}
}
