// Package plan turns a job into toolpaths, one worker per operation, and
// sequences the result into a single G-code program.
package plan

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/gcode"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/clipper"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/pocket"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/tabs"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

// Cut is a set of toolpaths emitted together with the tabs they leave.
type Cut struct {
	Toolpaths *toolpath.Toolpaths
	Tabs      tabs.Tabs
}

// Result is the planned form of one operation.
type Result struct {
	Operation job.Operation
	Tool      tool.Tool
	Cuts      []Cut // empty for drill operations
}

// Toolpaths returns every toolpath of the result in emission order.
func (r Result) Toolpaths() *toolpath.Toolpaths {
	all := toolpath.NewToolpaths()
	for _, c := range r.Cuts {
		all.Add(c.Toolpaths)
	}
	return all
}

// Plan computes the toolpaths of every operation in j. Operations are
// planned concurrently and share only the job itself; results come back in
// job order. A nil kernel means a clipper kernel at the job's resolution.
// Either every operation is planned or an error is returned.
func Plan(ctx context.Context, j *job.Job, k kernel.Kernel, sink progress.Sink) ([]Result, error) {
	const op = "plan"
	if errs, _ := job.Split(job.Validate(j)); len(errs) > 0 {
		return nil, camerr.InvalidInput(op, "%s", joinFindings(errs))
	}
	if err := camerr.Check(ctx, op); err != nil {
		return nil, err
	}
	if k == nil {
		k = clipper.New(j.Settings)
	}
	eng := pocket.New(k, j.Settings)
	agg := progress.NewAggregate(sink, len(j.Operations))
	results := make([]Result, len(j.Operations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, o := range j.Operations {
		tl, _ := j.Tool(o)
		g.Go(func() error {
			r, err := planOperation(gctx, eng, o, tl, agg.Part(i))
			if err != nil {
				return fmt.Errorf("%s: operation %q: %w", op, o.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// A failing operation cancels its siblings; report the cause.
		if cerr := ctx.Err(); cerr != nil && !camerr.IsCancelled(err) {
			return nil, camerr.Cancelled(op, cerr)
		}
		return nil, err
	}
	return results, nil
}

func joinFindings(findings []job.ValidationError) string {
	msgs := make([]string, len(findings))
	for i, f := range findings {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

func options(o job.Operation) pocket.Options {
	return pocket.Options{
		Outside:      o.Kind == job.KindOutside,
		Displacement: o.Props.Offset,
		Dogbones:     o.Dogbones,
		Margin:       o.Margin,
		Angle:        o.RasterAngle * math.Pi / 180,
		Zigzag:       o.Zigzag,
		Finish:       o.Finish,
		Width:        o.PeelWidth,
		Trochoidal:   o.Trochoidal,
		Trochoid:     o.Trochoid,
	}
}

func planOperation(ctx context.Context, eng *pocket.Engine, o job.Operation, tl tool.Tool, sink progress.Sink) (Result, error) {
	log := logging.Logger()
	log.Debug("planning operation", "name", o.Name, "kind", o.Kind, "tool", tl.Name)
	res := Result{Operation: o, Tool: tl}

	var (
		ts  *toolpath.Toolpaths
		err error
	)
	opts := options(o)
	switch o.Kind {
	case job.KindPocket:
		ts, err = eng.ContourParallel(ctx, sink, o.Shape, tl, opts)
	case job.KindContour, job.KindOutside:
		ts, err = eng.Contour(ctx, sink, o.Shape, tl, opts)
	case job.KindPeel:
		ts, err = eng.OutsidePeel(ctx, sink, o.Shape, tl, opts)
	case job.KindRaster:
		ts, err = eng.AxisParallel(ctx, sink, o.Shape, tl, opts)
	case job.KindEngrave:
		ts, err = engrave(ctx, sink, o, tl)
	case job.KindDrill:
		if err := camerr.Check(ctx, "plan: drill"); err != nil {
			return Result{}, err
		}
		progress.New(ctx, sink, "plan: drill").Done()
		return res, nil
	default:
		return Result{}, camerr.InvalidInput("plan", "unknown operation kind %v", o.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	if !o.Kind.HasTabs() || !o.HasTabs() {
		res.Cuts = []Cut{{Toolpaths: ts}}
	} else {
		flat := ts.Flatten()
		rings := make([]geom.Path, len(flat))
		for i, tp := range flat {
			rings[i] = tp.Path
		}
		for i, tp := range flat {
			res.Cuts = append(res.Cuts, Cut{
				Toolpaths: toolpath.NewToolpaths(tp),
				Tabs:      placeTabs(o, tl, tp, nearestPoints(o.TabPoints, rings, i)),
			})
		}
	}
	log.Debug("planned operation", "name", o.Name, "toolpaths", ts.Len())
	return res, nil
}

// engrave follows the shape's outlines with the tool centre.
func engrave(ctx context.Context, sink progress.Sink, o job.Operation, tl tool.Tool) (*toolpath.Toolpaths, error) {
	tr := progress.New(ctx, sink, "plan: engrave")
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	if err := o.Shape.Validate(); err != nil {
		return nil, err
	}
	if err := tr.Check(); err != nil {
		return nil, err
	}
	ts := toolpath.NewToolpaths(toolpath.New(o.Shape.Boundary, tl))
	for _, isl := range o.Shape.Islands {
		ts.Add(toolpath.New(isl, tl))
	}
	tr.Done()
	return ts, nil
}

// nearestPoints returns the tab points closer to rings[i] than to any other
// ring, so that each requested tab lands on one path only.
func nearestPoints(points []geom.Point, rings []geom.Path, i int) []geom.Point {
	var out []geom.Point
	for _, p := range points {
		best, bestDist := -1, math.Inf(1)
		for j, r := range rings {
			if _, d := r.Closest(p); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best == i {
			out = append(out, p)
		}
	}
	return out
}

// placeTabs lays out the tabs of one toolpath: evenly spaced ones first,
// then the requested points, snapped to trochoidal loops when present.
func placeTabs(o job.Operation, tl tool.Tool, tp *toolpath.Toolpath, points []geom.Point) tabs.Tabs {
	length := tp.Path.Length()
	var tb tabs.Tabs
	if o.TabCount > 0 {
		tb = append(tb, tabs.Auto(length, o.TabCount, tl.Diameter*(1+o.TabWidth))...)
	}
	if len(points) > 0 {
		tb = append(tb, tabs.Place(tp.Path, points, tl.Diameter, o.TabWidth)...)
	}
	tb = tb.Normalize()
	if len(tp.Segments) > 0 {
		tb = tabs.Align(tb, tp.Segments)
	}
	return tb
}

// Generate plans j and writes one program cutting every operation in job
// order.
func Generate(ctx context.Context, j *job.Job, k kernel.Kernel, w gcode.Writer, sink progress.Sink) error {
	results, err := Plan(ctx, j, k, sink)
	if err != nil {
		return err
	}
	return Emit(w, j, results)
}

// Emit writes planned results as one program.
func Emit(w gcode.Writer, j *job.Job, results []Result) error {
	log := logging.Logger()
	e := gcode.NewEmitter(w, j.Machine.Travel(), j.Settings)
	e.Begin()
	for _, r := range results {
		o := r.Operation
		log.Info("emitting operation", "name", o.Name, "kind", o.Kind, "tool", r.Tool.Name)
		if o.Kind == job.KindDrill {
			if err := e.Helix(o.Hole.Center, o.Hole.Diameter, r.Tool, o.Props); err != nil {
				return fmt.Errorf("plan: operation %q: %w", o.Name, err)
			}
			continue
		}
		for _, c := range r.Cuts {
			if err := e.Operation(c.Toolpaths, o.Props, c.Tabs); err != nil {
				return fmt.Errorf("plan: operation %q: %w", o.Name, err)
			}
		}
	}
	e.End()
	if ew, ok := w.(interface{ Err() error }); ok {
		return ew.Err()
	}
	return nil
}
