package trochoid

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/tool"
)

func testTool(stepover float64) tool.Tool {
	return tool.Tool{Name: "t", Diameter: 4, HFeed: 600, VFeed: 200, MaxDOC: 1, Stepover: stepover, Climb: true}
}

func line(pts ...geom.Point) geom.Path { return geom.PolylinePath(pts, false) }

func TestGenerateStraightWall(t *testing.T) {
	inner := line(geom.Pt(0, 2), geom.Pt(20, 2))
	outer := line(geom.Pt(0, 0), geom.Pt(20, 0))
	var reports []float64
	sink := progress.Func(func(f float64) { reports = append(reports, f) })

	res, err := Generate(context.Background(), sink, inner, outer, testTool(0.4), DefaultParams(), geom.DefaultSettings())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := len(res.Segments); got != 14 {
		t.Errorf("len(Segments) = %d, want 14", got)
	}
	if res.Path.Closed {
		t.Error("Path.Closed = true, want open")
	}
	b := res.Path.Bounds()
	if b.Min.Y < -1e-6 || b.Max.Y > 4+1e-6 {
		t.Errorf("Bounds() = %+v, want y within [0, 4]", b)
	}
	total := res.Path.Length()
	prev := -1.0
	for i, s := range res.Segments {
		if s.StartLen < prev || s.EndLen <= s.StartLen || s.EndLen > total+1e-9 {
			t.Errorf("Segments[%d] = [%g, %g], prev end %g, path length %g", i, s.StartLen, s.EndLen, prev, total)
		}
		if s.Entry == nil || s.Entry.Radius != 2 {
			t.Errorf("Segments[%d].Entry = %+v, want radius 2", i, s.Entry)
		}
		prev = s.EndLen
	}
	if len(reports) == 0 || reports[len(reports)-1] != 1 {
		t.Errorf("progress reports = %v, want to end at 1", reports)
	}
}

func TestGenerateLoopDirection(t *testing.T) {
	inner := line(geom.Pt(0, 2), geom.Pt(10, 2))
	outer := line(geom.Pt(0, 0), geom.Pt(10, 0))
	for _, climb := range []bool{true, false} {
		tl := testTool(0.5)
		tl.Climb = climb
		res, err := Generate(context.Background(), nil, inner, outer, tl, DefaultParams(), geom.DefaultSettings())
		if err != nil {
			t.Fatalf("Generate(climb=%v) error = %v", climb, err)
		}
		for _, n := range res.Path.Nodes {
			if a, ok := n.(geom.Arc); ok && a.CCW() != climb {
				t.Fatalf("climb=%v: arc CCW = %v", climb, a.CCW())
			}
		}
	}
}

func TestGenerateFollowsWallAroundCorner(t *testing.T) {
	inner := line(geom.Pt(0, 2), geom.Pt(8, 2), geom.Pt(8, 10))
	outer := line(geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10))

	res, err := Generate(context.Background(), nil, inner, outer, testTool(0.375), DefaultParams(), geom.DefaultSettings())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	corner := geom.Pt(10, 0)
	found := false
	for _, n := range res.Path.Nodes {
		if n.End().Near(corner, 1e-6) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("path never reaches wall corner %v", corner)
	}
	if len(res.Segments) < 8 {
		t.Errorf("len(Segments) = %d, want at least 8", len(res.Segments))
	}
}

func TestGenerateErrors(t *testing.T) {
	inner := line(geom.Pt(0, 2), geom.Pt(20, 2))
	outer := line(geom.Pt(0, 0), geom.Pt(20, 0))
	s := geom.DefaultSettings()

	t.Run("short path", func(t *testing.T) {
		_, err := Generate(context.Background(), nil, line(geom.Pt(0, 0)), outer, testTool(0.4), DefaultParams(), s)
		if !errors.Is(err, camerr.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
	t.Run("bad tool", func(t *testing.T) {
		_, err := Generate(context.Background(), nil, inner, outer, tool.Tool{}, DefaultParams(), s)
		if !errors.Is(err, camerr.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := Generate(ctx, nil, inner, outer, testTool(0.4), DefaultParams(), s)
		if !camerr.IsCancelled(err) {
			t.Errorf("err = %v, want cancellation", err)
		}
		if !res.Path.IsEmpty() || res.Segments != nil {
			t.Errorf("cancelled Generate returned a partial result %+v", res)
		}
	})
}

func TestParamsDefaults(t *testing.T) {
	p := Params{}.withDefaults(testTool(0.4))
	want := DefaultParams()
	want.Tolerance = 0.4
	if p != want {
		t.Errorf("withDefaults() = %+v, want %+v", p, want)
	}
}

func TestWallBetween(t *testing.T) {
	ring := geom.PolylinePath([]geom.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, true)
	tests := []struct {
		name     string
		from, to float64
		start    geom.Point
		end      geom.Point
		length   float64
	}{
		{"forward", 5, 15, geom.Pt(5, 0), geom.Pt(10, 5), 10},
		{"backward", 15, 5, geom.Pt(10, 5), geom.Pt(5, 0), 10},
		{"across the seam", 35, 5, geom.Pt(0, 5), geom.Pt(5, 0), 10},
		{"back across the seam", 5, 35, geom.Pt(5, 0), geom.Pt(0, 5), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := wallBetween(ring, tt.from, tt.to)
			var length float64
			for _, p := range parts {
				length += p.Length()
			}
			first, last := parts[0], parts[len(parts)-1]
			if !first.Start().Near(tt.start, 1e-9) || !last.End().Near(tt.end, 1e-9) {
				t.Errorf("wallBetween() runs %v to %v, want %v to %v", first.Start(), last.End(), tt.start, tt.end)
			}
			if math.Abs(length-tt.length) > 1e-9 {
				t.Errorf("length = %g, want %g", length, tt.length)
			}
		})
	}
}
