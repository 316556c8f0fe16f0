// Package toolpath holds computed tool-centre trajectories together with the
// tool that cuts them, and groups them into ordered, possibly nested, sets.
package toolpath

import (
	"math"
	"sync"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/tool"
)

// HelicalEntry is a place where the tool may descend on a helix instead of
// ramping along the path.
type HelicalEntry struct {
	Center geom.Point
	Radius float64
}

// Segment records one stretch of a trochoidal path by arc-length position,
// with the entry to use when cutting resumes there.
type Segment struct {
	StartLen, EndLen float64
	Entry            *HelicalEntry
}

// OperationProps are the depth and offset parameters of one operation.
// Depths are Z coordinates; StartDepth lies above EndDepth. Tabs are left
// standing at TabDepth and only take effect below it.
type OperationProps struct {
	StartDepth float64 `toml:"start_depth"`
	EndDepth   float64 `toml:"end_depth"`
	TabDepth   float64 `toml:"tab_depth"`
	Offset     float64 `toml:"offset"` // lateral displacement, positive away from the material
}

// Validate checks the depth ordering.
func (p OperationProps) Validate() error {
	if p.EndDepth >= p.StartDepth {
		return camerr.InvalidInput("toolpath: props", "end depth %g must be below start depth %g", p.EndDepth, p.StartDepth)
	}
	return nil
}

// TabsActive reports whether cutting at depth would cut into tabs.
func (p OperationProps) TabsActive(depth float64) bool {
	return p.TabDepth > p.EndDepth && depth < p.TabDepth
}

// Depths returns the depth of each pass from StartDepth down to EndDepth,
// at most doc apart. The last pass lands exactly on EndDepth.
func (p OperationProps) Depths(doc float64) []float64 {
	if doc <= 0 || p.EndDepth >= p.StartDepth {
		return nil
	}
	const eps = 1e-6
	var out []float64
	for d := p.StartDepth; d > p.EndDepth+eps; {
		d = math.Max(d-doc, p.EndDepth)
		if d-p.EndDepth < eps {
			d = p.EndDepth
		}
		out = append(out, d)
	}
	return out
}

// Toolpath is a tool-centre trajectory cut by one tool. Its derived variants
// are computed on first use and cached; a Toolpath must not be copied after
// creation.
type Toolpath struct {
	Path         geom.Path
	Tool         tool.Tool
	HelicalEntry *HelicalEntry
	Segments     []Segment

	bounds    geom.Box
	transform func(geom.Path) geom.Path

	transformedOnce sync.Once
	transformed     geom.Path
	fittedOnce      sync.Once
	fitted          geom.Path
	optimizedOnce   sync.Once
	optimized       geom.Path
}

// Option configures a Toolpath.
type Option func(*Toolpath)

// WithHelicalEntry sets the helical entry point.
func WithHelicalEntry(e *HelicalEntry) Option {
	return func(t *Toolpath) { t.HelicalEntry = e }
}

// WithSegments attaches trochoidal segment records.
func WithSegments(segs []Segment) Option {
	return func(t *Toolpath) { t.Segments = segs }
}

// WithBounds sets the bounds instead of computing them from the path, for
// paths whose pre-simplification bounds are already known.
func WithBounds(b geom.Box) Option {
	return func(t *Toolpath) { t.bounds = b }
}

// WithTransform sets the function deriving the cut path from Path.
func WithTransform(fn func(geom.Path) geom.Path) Option {
	return func(t *Toolpath) { t.transform = fn }
}

// New returns a toolpath following path with tl.
func New(path geom.Path, tl tool.Tool, opts ...Option) *Toolpath {
	t := &Toolpath{Path: path, Tool: tl, bounds: geom.EmptyBox()}
	for _, opt := range opts {
		opt(t)
	}
	if t.bounds.IsEmpty() {
		t.bounds = path.Bounds()
	}
	return t
}

// Bounds returns the bounds of the path.
func (t *Toolpath) Bounds() geom.Box { return t.bounds }

func (t *Toolpath) item() {}

// Transformed returns the path after the transform option, or Path.
func (t *Toolpath) Transformed() geom.Path {
	t.transformedOnce.Do(func() {
		t.transformed = t.Path
		if t.transform != nil {
			t.transformed = t.transform(t.Path)
		}
	})
	return t.transformed
}

// ArcFitted returns Transformed with runs of points replaced by arcs. The
// settings of the first call are used for all later calls.
func (t *Toolpath) ArcFitted(s geom.Settings) geom.Path {
	t.fittedOnce.Do(func() {
		t.fitted = geom.FitArcs(t.Transformed(), s)
	})
	return t.fitted
}

// Optimized returns the path to emit: arc fitted when s.SimplifyArcs is set
// and with collinear points removed when s.SimplifyLines is set. The
// settings of the first call are used for all later calls.
func (t *Toolpath) Optimized(s geom.Settings) geom.Path {
	t.optimizedOnce.Do(func() {
		p := t.Transformed()
		if s.SimplifyArcs {
			p = t.ArcFitted(s)
		}
		if s.SimplifyLines {
			p = geom.SimplifyLines(p, s.ArcTolerance)
		}
		t.optimized = p
	})
	return t.optimized
}

// Item is an element of Toolpaths: a *Toolpath or a nested *Toolpaths.
type Item interface {
	Bounds() geom.Box
	item()
}

// Toolpaths is an ordered group of toolpaths and nested groups.
type Toolpaths struct {
	Items []Item
}

// NewToolpaths returns a group of items.
func NewToolpaths(items ...Item) *Toolpaths {
	return &Toolpaths{Items: items}
}

func (ts *Toolpaths) item() {}

// Add appends items to the group.
func (ts *Toolpaths) Add(items ...Item) {
	ts.Items = append(ts.Items, items...)
}

// Bounds returns the union of the bounds of all items.
func (ts *Toolpaths) Bounds() geom.Box {
	b := geom.EmptyBox()
	for _, it := range ts.Items {
		b = b.Union(it.Bounds())
	}
	return b
}

// Walk calls fn for every toolpath in order with its nesting depth. Walking
// stops when fn returns false.
func (ts *Toolpaths) Walk(fn func(t *Toolpath, depth int) bool) {
	ts.walk(fn, 0)
}

func (ts *Toolpaths) walk(fn func(*Toolpath, int) bool, depth int) bool {
	for _, it := range ts.Items {
		switch it := it.(type) {
		case *Toolpath:
			if !fn(it, depth) {
				return false
			}
		case *Toolpaths:
			if !it.walk(fn, depth+1) {
				return false
			}
		}
	}
	return true
}

// Flatten returns all toolpaths in order.
func (ts *Toolpaths) Flatten() []*Toolpath {
	var out []*Toolpath
	ts.Walk(func(t *Toolpath, _ int) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Len returns the number of toolpaths, counting nested ones.
func (ts *Toolpaths) Len() int { return len(ts.Flatten()) }

// Paths returns the paths of all toolpaths in order.
func (ts *Toolpaths) Paths() []geom.Path {
	flat := ts.Flatten()
	out := make([]geom.Path, len(flat))
	for i, t := range flat {
		out[i] = t.Path
	}
	return out
}
