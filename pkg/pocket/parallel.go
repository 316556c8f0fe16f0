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
)

// ContourParallel clears the inside of sh with rings offset from the walls
// and islands in steps of the tool's stepover. The result holds one nested
// group per chain of nested rings, innermost ring first. The first ring of
// each chain carries a helical entry when one fits.
func (e *Engine) ContourParallel(ctx context.Context, sink progress.Sink, sh shape.Shape, tl tool.Tool, opts Options) (*toolpath.Toolpaths, error) {
	const op = "pocket: contour parallel"
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
	stock, err := e.k.Offset(base, -r)
	if err != nil {
		return nil, err
	}
	stock = kernel.DropSlivers(stock, e.minArea())
	if len(stock) == 0 {
		return nil, camerr.EmptyResult(op, "tool %q does not fit", tl.Name)
	}
	isl, err := e.overlappingIslands(sh, r, stock)
	if err != nil {
		return nil, err
	}
	area := base
	if len(isl) > 0 {
		if area, err = e.k.Difference(base, isl); err != nil {
			return nil, err
		}
	}

	ccw := expectedCCW(false, tl.Climb)
	step := tl.StepoverDistance()
	b := kernel.Bounds(stock)
	estimate := math.Max(math.Min(b.Width(), b.Height())/2, step)
	var levels [][]geom.Polygon
	var reachable []geom.Polygon
	for i := 0; ; i++ {
		d := float64(i) * step
		if err := tr.Step(d, estimate); err != nil {
			return nil, err
		}
		rings, err := e.k.Offset(area, -(r + d))
		if err != nil {
			return nil, err
		}
		rings = kernel.DropSlivers(rings, e.minArea())
		if len(rings) == 0 {
			break
		}
		if i == 0 {
			reachable = slices.Clone(rings)
		}
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
	if len(levels) == 0 {
		return nil, camerr.EmptyResult(op, "no ring fits between the walls and islands")
	}
	slices.Reverse(levels)

	reach, err := e.newRegion(reachable)
	if err != nil {
		return nil, err
	}
	walls, err := e.newRegion(area)
	if err != nil {
		return nil, err
	}
	out := toolpath.NewToolpaths()
	for _, chain := range findPathNesting(levels) {
		pieces := joinClosePaths(chain, tl.Diameter, reach)
		group := toolpath.NewToolpaths()
		for i, pc := range pieces {
			var opt []toolpath.Option
			if i == 0 {
				if entry := e.helicalEntry(chain[0], tl, margin, area, walls); entry != nil {
					opt = append(opt, toolpath.WithHelicalEntry(entry))
				}
			}
			group.Add(toolpath.New(geom.PolylinePath(pc, false), tl, opt...))
		}
		out.Add(group)
	}
	tr.Done()
	return out, nil
}

// overlappingIslands returns the islands of sh, wound counter-clockwise,
// whose inflation by r overlaps stock. The others cannot affect any ring.
func (e *Engine) overlappingIslands(sh shape.Shape, r float64, stock []geom.Polygon) ([]geom.Polygon, error) {
	var keep []geom.Polygon
	for _, p := range sh.IslandPolygons(e.s) {
		p = p.Oriented(true)
		grown, err := e.k.Offset([]geom.Polygon{p}, r)
		if err != nil {
			return nil, err
		}
		apart, err := kernel.Disjoint(e.k, grown, stock, e.minArea())
		if err != nil {
			return nil, err
		}
		if !apart {
			keep = append(keep, p)
		}
	}
	return keep, nil
}

// mergeToolpaths rotates each ring of next to start at the point nearest
// the start of the closest ring of prev, so that consecutive rings can be
// chained with short moves.
func mergeToolpaths(prev, next []geom.Polygon) []geom.Polygon {
	for i, p := range next {
		var (
			anchor geom.Point
			bestD  = math.Inf(1)
		)
		for _, q := range prev {
			if _, _, d := closestOn(p, q[0]); d < bestD {
				anchor, bestD = q[0], d
			}
		}
		if !math.IsInf(bestD, 1) {
			next[i] = startAt(p, anchor)
		}
	}
	return next
}

// findPathNesting groups the rings of levels, given innermost level first,
// into chains. A ring's parent is the ring of an adjacent level with the
// smallest bounding box containing its own. Chains start from the smallest
// unvisited ring and climb through unvisited parents.
func findPathNesting(levels [][]geom.Polygon) [][]geom.Polygon {
	type node struct {
		poly   geom.Polygon
		level  int
		box    geom.Box
		parent int
	}
	var nodes []node
	for li, lv := range levels {
		for _, p := range lv {
			nodes = append(nodes, node{poly: p, level: li, box: p.Bounds(), parent: -1})
		}
	}
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(nodes[a].box.Area(), nodes[b].box.Area())
	})
	for i := range nodes {
		best := math.Inf(1)
		for j := range nodes {
			dl := nodes[j].level - nodes[i].level
			if dl != 1 && dl != -1 {
				continue
			}
			a := nodes[j].box.Area()
			if a > nodes[i].box.Area() && a < best && nodes[j].box.Grow(1e-6).Contains(nodes[i].box) {
				nodes[i].parent, best = j, a
			}
		}
	}
	visited := make([]bool, len(nodes))
	var chains [][]geom.Polygon
	for _, i := range order {
		var chain []geom.Polygon
		for n := i; n >= 0 && !visited[n]; n = nodes[n].parent {
			visited[n] = true
			chain = append(chain, nodes[n].poly)
		}
		if len(chain) > 0 {
			chains = append(chains, chain)
		}
	}
	return chains
}

// joinClosePaths turns a chain of rings into as few open polylines as
// possible. A ring continues the previous one when the previous ring's end
// is within maxGap of it. Failing that, the search backtracks along the
// previous ring for a point within maxGap. Every connecting move must stay
// inside reach.
func joinClosePaths(chain []geom.Polygon, maxGap float64, reach *region) [][]geom.Point {
	if len(chain) == 0 {
		return nil
	}
	sample := maxGap / 8
	var out [][]geom.Point
	cur := closedPoints(chain[0])
	prev := chain[0]
	for _, p := range chain[1:] {
		end := cur[len(cur)-1]
		if end.Dist(p[0]) <= maxGap && reach.covers(end, p[0], sample) {
			cur = append(cur, closedPoints(p)...)
			prev = p
			continue
		}
		if back, from, ok := backtrack(prev, p, maxGap, sample, reach); ok {
			cur = append(cur, back...)
			cur = append(cur, closedPoints(startAt(p, from))...)
			prev = p
			continue
		}
		out = append(out, cur)
		cur = closedPoints(p)
		prev = p
	}
	return append(out, cur)
}

// backtrack walks ring prev backwards from its start looking for a vertex
// within maxGap of ring next. It returns the vertices walked past the start
// and the vertex found.
func backtrack(prev, next geom.Polygon, maxGap, sample float64, reach *region) ([]geom.Point, geom.Point, bool) {
	var walked []geom.Point
	for j := 0; j < len(prev); j++ {
		v := prev[(len(prev)-j)%len(prev)]
		if j > 0 {
			walked = append(walked, v)
		}
		if c, _, d := closestOn(next, v); d <= maxGap && reach.covers(v, c, sample) {
			return walked, v, true
		}
	}
	return nil, geom.Point{}, false
}

// helicalEntry looks for a helix at the start of ring whose swept circle,
// of diameter D(1+2·stepover)+margin, stays inside area and clear of its
// islands. Candidates are tried in order: the ring start, the centre of its
// bounding box and its other vertices.
func (e *Engine) helicalEntry(ring geom.Polygon, tl tool.Tool, margin float64, area []geom.Polygon, walls *region) *toolpath.HelicalEntry {
	helix := math.Max(tl.Diameter*tl.Stepover+margin/2, tl.MinHelixDiameter()/2)
	swept := helix + tl.Radius()
	candidates := make([]geom.Point, 0, len(ring)+1)
	candidates = append(candidates, ring[0], ring.Bounds().Center())
	candidates = append(candidates, ring[1:]...)
	steps := max(e.s.ArcSteps(swept, 2*math.Pi), 16)
	for _, c := range candidates {
		if !walls.clear.Fits(c, swept-walls.tol) {
			continue
		}
		circle := geom.Circle{Center: c, R: swept}.Polygon(steps)
		ok, err := kernel.Inside(e.k, []geom.Polygon{circle}, area, e.minArea()*float64(steps))
		if err == nil && ok {
			return &toolpath.HelicalEntry{Center: c, Radius: helix}
		}
	}
	return nil
}
