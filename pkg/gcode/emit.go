package gcode

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/tabs"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

// Machine holds the Z heights used between cuts.
type Machine struct {
	SafeZ     float64 `toml:"safe_z"`    // height for travel moves
	Clearance float64 `toml:"clearance"` // rapid down to this far above the last cut depth
}

// DefaultMachine returns the travel heights used when a job sets none.
func DefaultMachine() Machine {
	return Machine{SafeZ: 5, Clearance: 0.5}
}

// Emitter sequences toolpaths into a Writer. It tracks the tool position
// across operations so that consecutive cuts share travel moves.
type Emitter struct {
	w Writer
	m Machine
	s geom.Settings

	at     geom.Point
	z      float64
	placed bool
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(w Writer, m Machine, s geom.Settings) *Emitter {
	return &Emitter{w: w, m: m, s: s, z: m.SafeZ}
}

// Begin writes the program preamble and lifts the tool to the safe height.
func (e *Emitter) Begin() {
	e.w.Reset()
	e.w.Rapid(Z(e.m.SafeZ))
	e.z = e.m.SafeZ
}

// End lifts the tool and ends the program.
func (e *Emitter) End() {
	e.w.Rapid(Z(e.m.SafeZ))
	e.z = e.m.SafeZ
	e.w.Finish()
}

// Emit writes a complete program for one operation.
func Emit(w Writer, ts *toolpath.Toolpaths, props toolpath.OperationProps, tb tabs.Tabs, m Machine, s geom.Settings) error {
	e := NewEmitter(w, m, s)
	e.Begin()
	if err := e.Operation(ts, props, tb); err != nil {
		return err
	}
	e.End()
	return nil
}

// piece is a stretch of a toolpath cut at one depth.
type piece struct {
	path  geom.Path
	at    float64 // start position along the emitted path
	z     float64
	entry *toolpath.HelicalEntry
}

// Operation cuts every toolpath of ts at each depth from props.StartDepth
// down to props.EndDepth. Below the tab depth the tabs are left standing:
// their stretch of the path is cut at props.TabDepth instead.
func (e *Emitter) Operation(ts *toolpath.Toolpaths, props toolpath.OperationProps, tb tabs.Tabs) error {
	if err := props.Validate(); err != nil {
		return err
	}
	flat := ts.Flatten()
	if len(flat) == 0 {
		return nil
	}
	for _, tp := range flat {
		if err := tp.Tool.Validate(); err != nil {
			return err
		}
	}
	top := props.StartDepth
	for _, d := range props.Depths(flat[0].Tool.MaxDOC) {
		for _, tp := range flat {
			for _, pc := range e.pieces(tp, d, props, tb) {
				e.cut(pc, tp.Tool, top)
			}
		}
		top = d
	}
	return nil
}

func (e *Emitter) pieces(tp *toolpath.Toolpath, d float64, props toolpath.OperationProps, tb tabs.Tabs) []piece {
	path := tp.Optimized(e.s)
	whole := []piece{{path: path, z: d, entry: tp.HelicalEntry}}
	if len(tb) == 0 || !props.TabsActive(d) {
		return whole
	}
	// Tab positions are measured on the source path; the emitted path may
	// be a little shorter after simplification.
	src := tp.Path.Length()
	total := path.Length()
	if src <= 0 {
		return whole
	}
	res := tb.Cut(0, src, src)
	switch res.Kind {
	case tabs.All:
		return whole
	case tabs.None:
		return []piece{{path: path, z: math.Max(d, props.TabDepth)}}
	}
	var out []piece
	for _, r := range res.Ranges {
		pc := piece{path: path.Subpath(r.Start*total, r.End*total), at: r.Start * total, z: d}
		if r.Start == 0 {
			pc.entry = tp.HelicalEntry
		} else {
			pc.entry = entryAfter(tb, r.Start*src)
		}
		out = append(out, pc)
	}
	for _, b := range tb.Invert(src) {
		at := b.Start / src * total
		out = append(out, piece{path: path.Subpath(at, b.End/src*total), at: at, z: props.TabDepth})
	}
	slices.SortStableFunc(out, func(a, b piece) int { return cmp.Compare(a.at, b.at) })
	return out
}

// entryAfter returns the helical entry of the tab ending at pos.
func entryAfter(tb tabs.Tabs, pos float64) *toolpath.HelicalEntry {
	for _, t := range tb {
		if math.Abs(t.End-pos) <= 1e-6 && t.Helical != nil {
			return t.Helical
		}
	}
	return nil
}

func (e *Emitter) cut(pc piece, tl tool.Tool, top float64) {
	p := pc.path
	if p.IsEmpty() {
		return
	}
	eps := e.s.Epsilon()
	start := p.Start()
	helical := pc.entry != nil && pc.entry.Radius > eps
	target := start
	var hc geom.Circle
	if helical {
		hc = geom.Circle{Center: pc.entry.Center, R: pc.entry.Radius}
		target = hc.At(hc.Angle(start))
	}
	e.travel(target, top)

	dz := e.z - pc.z
	switch {
	case dz <= eps || p.Length() <= eps:
		e.w.Feed(tl.VFeed)
		e.w.Linear(Z(pc.z))
		e.z = pc.z
	case helical:
		e.helixDown(hc, pc.z, tl)
		e.w.Feed(tl.HFeed)
		e.w.Linear(XY(start.X, start.Y))
		e.at = start
	default:
		e.ramp(p, pc.z, tl)
	}
	e.follow(p, tl)
}

// travel moves the tool to p at the safe height unless it is already there,
// then rapids down to just above top.
func (e *Emitter) travel(p geom.Point, top float64) {
	if e.placed && e.at.Dist(p) <= e.s.Epsilon() {
		return
	}
	if e.z < e.m.SafeZ {
		e.w.Rapid(Z(e.m.SafeZ))
	}
	e.w.Rapid(XY(p.X, p.Y))
	z := math.Min(e.m.SafeZ, top+e.m.Clearance)
	e.w.Rapid(Z(z))
	e.at, e.z, e.placed = p, z, true
}

// halfTurns moves n half revolutions around c from the current position,
// interpolating Z from z0 to z1.
func (e *Emitter) halfTurns(c geom.Circle, dir Direction, n int, z0, z1 float64) {
	a := c.Angle(e.at)
	sign := 1.0
	if dir == CW {
		sign = -1
	}
	for k := 1; k <= n; k++ {
		end := c.At(a + sign*math.Pi*float64(k))
		z := z0 + (z1-z0)*float64(k)/float64(n)
		if k == n {
			z = z1
		}
		e.w.Arc(dir, XYZ(end.X, end.Y, z), c.Center.X-e.at.X, c.Center.Y-e.at.Y)
		e.at = end
	}
	e.z = z1
}

func arcDirection(tl tool.Tool) Direction {
	if tl.Climb {
		return CCW
	}
	return CW
}

// helixDown descends to z around c. Each revolution drops by no more than
// the tool's slope allows over the circumference, and never more than its
// depth of cut.
func (e *Emitter) helixDown(c geom.Circle, z float64, tl tool.Tool) {
	dz := e.z - z
	drop := math.Min(2*math.Pi*c.R*tl.Slope(), tl.MaxDOC)
	revs := 1
	if drop > 0 {
		revs = max(1, int(math.Ceil(dz/drop-1e-9)))
	}
	e.w.Feed(tl.HFeed)
	e.halfTurns(c, arcDirection(tl), 2*revs, e.z, z)
}

// ramp descends to z by walking back and forth along the start of p, with
// Z falling linearly over the distance travelled.
func (e *Emitter) ramp(p geom.Path, z float64, tl tool.Tool) {
	dz := e.z - z
	run := dz / tl.Slope()
	rampLen := math.Min(p.Length(), run/2)
	lead := p.Subpath(0, rampLen).Linearize(e.s)
	if len(lead) < 2 || rampLen <= e.s.Epsilon() {
		e.w.Feed(tl.VFeed)
		e.w.Linear(Z(z))
		e.z = z
		return
	}
	passes := max(1, int(math.Ceil(run/(2*rampLen)-1e-9)))
	back := slices.Clone(lead[:len(lead)-1])
	slices.Reverse(back)
	total := float64(passes) * 2 * rampLen
	z0, walked := e.z, 0.0
	prev := lead[0]
	e.w.Feed(tl.HFeed)
	for i := 0; i < passes; i++ {
		for _, seq := range [][]geom.Point{lead[1:], back} {
			for _, q := range seq {
				walked += prev.Dist(q)
				e.w.Linear(XYZ(q.X, q.Y, math.Max(z, z0-dz*walked/total)))
				prev = q
			}
		}
	}
	if z0-dz*walked/total > z+1e-9 {
		e.w.Linear(Z(z))
	}
	e.at, e.z = prev, z
}

// follow cuts along p at the current depth.
func (e *Emitter) follow(p geom.Path, tl tool.Tool) {
	e.w.Feed(tl.HFeed)
	prev := p.Start()
	for _, n := range p.Nodes[1:] {
		switch n := n.(type) {
		case geom.Point:
			if n != prev {
				e.w.Linear(XY(n.X, n.Y))
			}
		case geom.Arc:
			dir := CW
			if n.CCW() {
				dir = CCW
			}
			e.w.Arc(dir, XY(n.P2.X, n.P2.Y), n.C.Center.X-prev.X, n.C.Center.Y-prev.Y)
		}
		prev = n.End()
	}
	if start := p.Start(); p.Closed && prev != start {
		e.w.Linear(XY(start.X, start.Y))
		prev = start
	}
	e.at = prev
}

// Helix drills a round hole of the given diameter at center: concentric
// helical rings from the centre outwards, each descending one depth of cut
// per revolution and finishing with a flat revolution at the bottom.
func (e *Emitter) Helix(center geom.Point, hole float64, tl tool.Tool, props toolpath.OperationProps) error {
	const op = "gcode: helix"
	if err := tl.Validate(); err != nil {
		return err
	}
	if err := props.Validate(); err != nil {
		return err
	}
	eps := e.s.Epsilon()
	switch {
	case hole < tl.Diameter-eps:
		return camerr.InvalidInput(op, "hole %g is smaller than tool %q", hole, tl.Name)
	case hole <= tl.Diameter+eps:
		e.travel(center, props.StartDepth)
		e.w.Feed(tl.VFeed)
		e.w.Linear(Z(props.EndDepth))
		e.z = props.EndDepth
		return nil
	}
	var radii []float64
	for r := (hole - tl.Diameter) / 2; r > eps; r -= tl.StepoverDistance() {
		radii = append(radii, r)
	}
	slices.Reverse(radii)
	dir := arcDirection(tl)
	for _, r := range radii {
		c := geom.Circle{Center: center, R: r}
		e.travel(c.At(0), props.StartDepth)
		revs := max(1, int(math.Ceil((e.z-props.EndDepth)/tl.MaxDOC-1e-9)))
		e.w.Feed(tl.HFeed)
		e.halfTurns(c, dir, 2*revs, e.z, props.EndDepth)
		e.halfTurns(c, dir, 2, props.EndDepth, props.EndDepth)
	}
	return nil
}
