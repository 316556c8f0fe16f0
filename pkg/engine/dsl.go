package engine

import (
	"errors"
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/trochoid"
	zygo "github.com/glycerine/zygomys/zygo"
)

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the job DSL into a zygomys environment. The
// builtins populate j as the script runs, so settings and machine forms
// should precede the shapes and tools that depend on them.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, j *job.Job, materials []tool.Material, loops trochoid.Params) {

	// -----------------------------------------------------------------------
	// (settings :resolution 64 :simplify-arcs true :simplify-lines true
	//           :arc-tolerance 0.01)
	// -----------------------------------------------------------------------
	env.AddFunction("settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("resolution", "simplify-arcs", "simplify-lines", "arc-tolerance"); err != nil {
			return zygo.SexpNull, fmt.Errorf("settings: %w", err)
		}
		s := j.Settings
		err := errors.Join(
			pa.num("resolution", &s.Resolution),
			pa.flag("simplify-arcs", &s.SimplifyArcs),
			pa.flag("simplify-lines", &s.SimplifyLines),
			pa.num("arc-tolerance", &s.ArcTolerance),
		)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("settings: %w", err)
		}
		if s.Resolution <= 0 {
			return zygo.SexpNull, fmt.Errorf("settings: resolution %g must be positive", s.Resolution)
		}
		j.Settings = s
		j.Defined.Settings = true
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (machine :safe-z 5 :clearance 1 :min-rpm 8000 :max-rpm 24000 :max-feed 5000)
	// -----------------------------------------------------------------------
	env.AddFunction("machine", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("safe-z", "clearance", "min-rpm", "max-rpm", "max-feed"); err != nil {
			return zygo.SexpNull, fmt.Errorf("machine: %w", err)
		}
		m := j.Machine
		err := errors.Join(
			pa.num("safe-z", &m.SafeZ),
			pa.num("clearance", &m.Clearance),
			pa.num("min-rpm", &m.MinRPM),
			pa.num("max-rpm", &m.MaxRPM),
			pa.num("max-feed", &m.MaxFeed),
		)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("machine: %w", err)
		}
		j.Machine = m
		j.Defined.Machine = true
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (tool "6mm" :diameter 6 :hfeed 1000 :vfeed 300 :doc 2 :stepover 0.4
	//             :climb true :helix-ratio 0.5)
	// (tool "6mm" :diameter 6 :flutes 2 :material "hardwood")
	// -----------------------------------------------------------------------
	env.AddFunction("tool", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("tool requires a name argument")
		}
		toolName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool: name: %w", err)
		}
		if err := pa.only("diameter", "hfeed", "vfeed", "doc", "stepover", "climb",
			"helix-ratio", "flutes", "rpm", "material"); err != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: %w", toolName, err)
		}

		cutter := tool.Cutter{Name: toolName, Stepover: 0.4}
		var material string
		err = errors.Join(
			pa.num("diameter", &cutter.Diameter),
			pa.integer("flutes", &cutter.Flutes),
			pa.num("stepover", &cutter.Stepover),
			pa.flag("climb", &cutter.Climb),
			pa.num("helix-ratio", &cutter.MinHelixRatio),
			pa.str("material", &material),
		)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: %w", toolName, err)
		}

		t := tool.Tool{
			Name:          toolName,
			Diameter:      cutter.Diameter,
			Stepover:      cutter.Stepover,
			Climb:         cutter.Climb,
			MinHelixRatio: cutter.MinHelixRatio,
			Flutes:        cutter.Flutes,
		}
		if material != "" {
			mat, ok := tool.FindMaterial(materials, material)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("tool %q: unknown material %q", toolName, material)
			}
			t, err = tool.Derive(mat, cutter, j.Machine.Limits())
			if err != nil {
				return zygo.SexpNull, err
			}
		}
		// Explicit cutting data overrides anything derived.
		err = errors.Join(
			pa.num("hfeed", &t.HFeed),
			pa.num("vfeed", &t.VFeed),
			pa.num("doc", &t.MaxDOC),
			pa.num("rpm", &t.RPM),
		)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tool %q: %w", toolName, err)
		}
		j.AddTool(t)
		return &zygo.SexpStr{S: toolName}, nil
	})

	// -----------------------------------------------------------------------
	// Shapes: (rect x y w h) (circle cx cy r) (polygon [x y ...])
	//         (polyline [x y ...]) (shape boundary island...)
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("rect", args, "x", "y", "w", "h")
		if err != nil {
			return zygo.SexpNull, err
		}
		if v[2] <= 0 || v[3] <= 0 {
			return zygo.SexpNull, fmt.Errorf("rect: size %gx%g must be positive", v[2], v[3])
		}
		return &sexpShape{shape: shape.Rect(v[0], v[1], v[2], v[3])}, nil
	})

	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("circle", args, "cx", "cy", "r")
		if err != nil {
			return zygo.SexpNull, err
		}
		if v[2] <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius %g must be positive", v[2])
		}
		return &sexpShape{shape: shape.Circle(geom.Pt(v[0], v[1]), v[2], j.Settings)}, nil
	})

	env.AddFunction("polygon", pointShape("polygon", 3, shape.Polygon))
	env.AddFunction("polyline", pointShape("polyline", 2, shape.Polyline))

	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a boundary")
		}
		outer, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: boundary: %w", err)
		}
		islands := append([]geom.Path(nil), outer.Islands...)
		for i, a := range args[1:] {
			isl, err := toShape(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("shape: island %d: %w", i+1, err)
			}
			if !isl.IsClosed() {
				return zygo.SexpNull, fmt.Errorf("shape: island %d must be closed", i+1)
			}
			islands = append(islands, isl.Boundary)
		}
		return &sexpShape{shape: shape.New(outer.Boundary, islands...)}, nil
	})

	// -----------------------------------------------------------------------
	// Operations:
	//   (pocket "name" shape :tool "6mm" :start 0 :end -6 :margin 0.2)
	//   (contour "name" shape :tool "6mm" :end -12 :tabs 4 :tab-depth -9)
	//   (outside ...) (peel ... :width 10) (raster ... :angle 45 :zigzag true)
	//   (engrave ...)
	//   (drill "name" :x 10 :y 10 :diameter 8 :tool "6mm" :start 0 :end -5)
	// -----------------------------------------------------------------------
	env.AddFunction("pocket", operation(j, job.KindPocket, loops, "margin"))
	env.AddFunction("contour", operation(j, job.KindContour, loops, "loop-size"))
	env.AddFunction("outside", operation(j, job.KindOutside, loops, "loop-size"))
	env.AddFunction("peel", operation(j, job.KindPeel, loops, "width"))
	env.AddFunction("raster", operation(j, job.KindRaster, loops, "angle", "zigzag", "finish"))
	env.AddFunction("engrave", operation(j, job.KindEngrave, loops))
	env.AddFunction("drill", operation(j, job.KindDrill, loops, "x", "y", "diameter"))
}

// pointShape builds a shape constructor taking one flat coordinate list.
func pointShape(fn string, minPoints int, build func([]geom.Point) shape.Shape) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires one coordinate list", fn)
		}
		pts, err := toPoints(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		if len(pts) < minPoints {
			return zygo.SexpNull, fmt.Errorf("%s needs at least %d points, got %d", fn, minPoints, len(pts))
		}
		return &sexpShape{shape: build(pts)}, nil
	}
}

// operation builds the builtin for one operation kind. Besides the shared
// keywords it accepts the kind-specific ones in extra.
func operation(j *job.Job, kind job.Kind, loops trochoid.Params, extra ...string) builtin {
	fn := kind.String()
	allowed := append([]string{"tool", "start", "end"}, extra...)
	positional := 1
	if kind != job.KindDrill {
		allowed = append(allowed, "tab-depth", "offset", "dogbones",
			"tabs", "tab-points", "tab-width", "trochoidal")
		positional = 2
	}

	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != positional {
			if kind == job.KindDrill {
				return zygo.SexpNull, fmt.Errorf("%s requires a name argument", fn)
			}
			return zygo.SexpNull, fmt.Errorf("%s requires a name and a shape", fn)
		}
		opName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
		}
		if err := pa.only(allowed...); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, opName, err)
		}

		op := job.Operation{Name: opName, Kind: kind, Trochoid: loops}
		if kind != job.KindDrill {
			if op.Shape, err = toShape(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, opName, err)
			}
		}
		var center geom.Point
		err = errors.Join(
			pa.str("tool", &op.ToolName),
			pa.num("start", &op.Props.StartDepth),
			pa.num("end", &op.Props.EndDepth),
			pa.num("tab-depth", &op.Props.TabDepth),
			pa.num("offset", &op.Props.Offset),
			pa.flag("dogbones", &op.Dogbones),
			pa.integer("tabs", &op.TabCount),
			pa.points("tab-points", &op.TabPoints),
			pa.num("tab-width", &op.TabWidth),
			pa.flag("trochoidal", &op.Trochoidal),
			pa.num("loop-size", &op.Trochoid.CircleSize),
			pa.num("margin", &op.Margin),
			pa.num("angle", &op.RasterAngle),
			pa.flag("zigzag", &op.Zigzag),
			pa.flag("finish", &op.Finish),
			pa.num("width", &op.PeelWidth),
			pa.num("x", &center.X),
			pa.num("y", &center.Y),
			pa.num("diameter", &op.Hole.Diameter),
		)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, opName, err)
		}
		op.Hole.Center = center

		if op.ToolName == "" && len(j.Tools) == 1 {
			for n := range j.Tools {
				op.ToolName = n
			}
		}
		if !pa.has("tab-depth") {
			if op.HasTabs() {
				return zygo.SexpNull, fmt.Errorf("%s %q: tabs need :tab-depth", fn, opName)
			}
			op.Props.TabDepth = op.Props.EndDepth
		}

		j.Add(op)
		return &sexpOp{name: opName, kind: kind}, nil
	}
}
