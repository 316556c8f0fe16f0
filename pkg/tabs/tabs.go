// Package tabs partitions toolpaths into cut and bridge stretches. A tab is
// an arc-length interval along a toolpath where material is left standing
// to hold the part.
package tabs

import (
	"cmp"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/toolpath"
)

// Range is an interval of arc-length positions, or of fractions of a
// length in results that say so.
type Range struct {
	Start, End float64
}

// Len returns the length of r.
func (r Range) Len() float64 { return r.End - r.Start }

// Tab is a bridge between arc-length positions Start and End. Helical, when
// set, is the entry to use for the cut that follows the tab.
type Tab struct {
	Start, End float64
	Helical    *toolpath.HelicalEntry
}

// CutKind classifies the result of cutting a range with a tab.
type CutKind int

const (
	Unchanged CutKind = iota // tab lies outside the range
	Removed                  // tab covers the whole range
	Pieces                   // tab splits or trims the range
)

// CutResult is what remains of a range after removing one tab.
type CutResult struct {
	Kind   CutKind
	Pieces []Range // up to two; only for Pieces
}

// Cut removes the tab from the range [start, end].
func (t Tab) Cut(start, end float64) CutResult {
	if t.End <= start || t.Start >= end {
		return CutResult{Kind: Unchanged}
	}
	if t.Start <= start && t.End >= end {
		return CutResult{Kind: Removed}
	}
	var pieces []Range
	if t.Start > start {
		pieces = append(pieces, Range{start, t.Start})
	}
	if t.End < end {
		pieces = append(pieces, Range{t.End, end})
	}
	return CutResult{Kind: Pieces, Pieces: pieces}
}

// Tabs is an ordered set of tabs along one toolpath.
type Tabs []Tab

// ResultKind classifies the result of cutting a range with all tabs.
type ResultKind int

const (
	All    ResultKind = iota // nothing removed, cut the whole range
	None                     // everything removed, cut nothing
	Ranges                   // cut the listed ranges
)

// Result is what remains of a range after removing every tab.
type Result struct {
	Kind   ResultKind
	Ranges []Range // fractions of the length passed to Cut; only for Ranges
}

// Cut removes all tabs from [start, end] of a path of the given length.
// Remaining ranges are returned as fractions of length, in order.
func (ts Tabs) Cut(start, end, length float64) Result {
	remaining := []Range{{start, end}}
	changed := false
	for _, t := range ts {
		var next []Range
		for _, r := range remaining {
			res := t.Cut(r.Start, r.End)
			switch res.Kind {
			case Unchanged:
				next = append(next, r)
			case Removed:
				changed = true
			case Pieces:
				changed = true
				next = append(next, res.Pieces...)
			}
		}
		remaining = next
	}
	switch {
	case !changed:
		return Result{Kind: All}
	case len(remaining) == 0:
		return Result{Kind: None}
	}
	slices.SortFunc(remaining, func(a, b Range) int { return cmp.Compare(a.Start, b.Start) })
	if length <= 0 {
		length = 1
	}
	for i := range remaining {
		remaining[i].Start /= length
		remaining[i].End /= length
	}
	return Result{Kind: Ranges, Ranges: remaining}
}

// Invert returns the bridge ranges of the tabs clipped to [0, length],
// sorted and merged, in arc-length units.
func (ts Tabs) Invert(length float64) []Range {
	var out []Range
	for _, t := range ts.Normalize() {
		r := Range{math.Max(t.Start, 0), math.Min(t.End, length)}
		if r.End > r.Start {
			out = append(out, r)
		}
	}
	return out
}

// Normalize returns the tabs sorted by start with overlapping tabs merged.
// A merged tab keeps the helical entry of the later tab, since that one
// precedes the following cut.
func (ts Tabs) Normalize() Tabs {
	if len(ts) == 0 {
		return nil
	}
	sorted := slices.Clone(ts)
	slices.SortFunc(sorted, func(a, b Tab) int { return cmp.Compare(a.Start, b.Start) })
	out := Tabs{sorted[0]}
	for _, t := range sorted[1:] {
		last := &out[len(out)-1]
		if t.Start <= last.End {
			if t.End >= last.End {
				last.End = t.End
				last.Helical = t.Helical
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

// Auto spaces n tabs of the given width evenly along a closed path of the
// given length.
func Auto(length float64, n int, width float64) Tabs {
	if n <= 0 || length <= 0 || width <= 0 {
		return nil
	}
	width = math.Min(width, length/float64(n))
	out := make(Tabs, n)
	for i := range out {
		c := (float64(i) + 0.5) * length / float64(n)
		out[i] = Tab{Start: c - width/2, End: c + width/2}
	}
	return out
}

// Place snaps each requested point to the nearest position on path and
// centres a tab of width diameter*(1+widthFactor) there. On closed paths a
// tab crossing the start is split in two; on open paths it is clamped.
// Overlapping tabs are merged.
func Place(path geom.Path, points []geom.Point, diameter, widthFactor float64) Tabs {
	length := path.Length()
	if length <= 0 {
		return nil
	}
	width := diameter * (1 + widthFactor)
	var out Tabs
	for _, p := range points {
		pos, _ := path.Closest(p)
		start, end := pos-width/2, pos+width/2
		switch {
		case width >= length:
			out = append(out, Tab{Start: 0, End: length})
		case !path.Closed:
			out = append(out, Tab{Start: math.Max(start, 0), End: math.Min(end, length)})
		case start < 0:
			out = append(out, Tab{Start: 0, End: end}, Tab{Start: start + length, End: length})
		case end > length:
			out = append(out, Tab{Start: start, End: length}, Tab{Start: 0, End: end - length})
		default:
			out = append(out, Tab{Start: start, End: end})
		}
	}
	return out.Normalize()
}

// Align moves tab boundaries onto the nearest trochoidal segment boundary,
// so that bridges begin and end between loops rather than inside one. The
// entry of the segment that starts where a tab ends becomes its helical
// entry.
func Align(ts Tabs, segments []toolpath.Segment) Tabs {
	if len(segments) == 0 {
		return ts
	}
	var bounds []float64
	for _, s := range segments {
		bounds = append(bounds, s.StartLen, s.EndLen)
	}
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)
	nearest := func(x float64) float64 {
		i, _ := slices.BinarySearch(bounds, x)
		best := bounds[min(i, len(bounds)-1)]
		if i > 0 && math.Abs(bounds[i-1]-x) < math.Abs(best-x) {
			best = bounds[i-1]
		}
		return best
	}
	out := make(Tabs, 0, len(ts))
	for _, t := range ts {
		a := Tab{Start: nearest(t.Start), End: nearest(t.End), Helical: t.Helical}
		if a.End <= a.Start {
			a = t
		}
		for _, s := range segments {
			if s.StartLen == a.End && s.Entry != nil {
				a.Helical = s.Entry
				break
			}
		}
		out = append(out, a)
	}
	return out.Normalize()
}
