package clipper

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/geom"
)

func newKernel() *ClipperKernel {
	return New(geom.DefaultSettings())
}

func square(x, y, size float64) geom.Polygon {
	return geom.Polygon{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}}
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// distToRing returns the distance from p to the nearest edge of ring.
func distToRing(p geom.Point, ring geom.Polygon) float64 {
	best := math.Inf(1)
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		_, c := geom.ClosestOnSegment(p, a, b)
		best = math.Min(best, p.Dist(c))
	}
	return best
}

func TestBooleans(t *testing.T) {
	k := newKernel()
	a := []geom.Polygon{square(0, 0, 10)}
	b := []geom.Polygon{square(5, 5, 10)}
	tests := []struct {
		name     string
		op       func(a, b []geom.Polygon) ([]geom.Polygon, error)
		wantArea float64
	}{
		{"union", k.Union, 175},
		{"difference", k.Difference, 75},
		{"intersection", k.Intersection, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(a, b)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if area := geom.TotalArea(got); !near(area, tt.wantArea, 1e-9) {
				t.Errorf("area = %v, want %v", area, tt.wantArea)
			}
			for _, p := range got {
				if !p.IsCCW() {
					t.Errorf("outer ring %v is not counter-clockwise", p)
				}
			}
		})
	}
}

func TestDifferenceHole(t *testing.T) {
	k := newKernel()
	got, err := k.Difference([]geom.Polygon{square(0, 0, 10)}, []geom.Polygon{square(4, 4, 2)})
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rings, want outer and hole", len(got))
	}
	if area := geom.TotalArea(got); !near(area, 96, 1e-9) {
		t.Errorf("area = %v, want 96", area)
	}
	var holes int
	for _, p := range got {
		if !p.IsCCW() {
			holes++
		}
	}
	if holes != 1 {
		t.Errorf("got %d clockwise holes, want 1", holes)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	k := newKernel()
	hex := geom.Circle{Center: geom.Pt(3, 4), R: 20}.Polygon(6)
	for _, d := range []float64{0.5, 2, 7.5, 12} {
		out, err := k.Offset([]geom.Polygon{hex}, d)
		if err != nil {
			t.Fatalf("Offset(%v) error = %v", d, err)
		}
		back, err := k.Offset(out, -d)
		if err != nil {
			t.Fatalf("Offset(%v) error = %v", -d, err)
		}
		if len(back) != 1 {
			t.Fatalf("d=%v: got %d rings back, want 1", d, len(back))
		}
		for _, v := range back[0] {
			if dist := distToRing(v, hex); dist > 0.08 {
				t.Errorf("d=%v: vertex %v is %v from the original", d, v, dist)
			}
		}
		for _, v := range hex {
			if dist := distToRing(v, back[0]); dist > 0.08 {
				t.Errorf("d=%v: original vertex %v is %v from the result", d, v, dist)
			}
		}
	}
}

func TestOffsetLargeSplits(t *testing.T) {
	k := newKernel()
	out, err := k.Offset([]geom.Polygon{square(0, 0, 10)}, 25)
	if err != nil {
		t.Fatalf("Offset() error = %v", err)
	}
	want := 100 + 4*10*25 + math.Pi*25*25
	if area := geom.TotalArea(out); math.Abs(area-want)/want > 0.01 {
		t.Errorf("area = %v, want about %v", area, want)
	}
}

func TestOffsetVanishes(t *testing.T) {
	k := newKernel()
	out, err := k.Offset([]geom.Polygon{square(0, 0, 10)}, -6)
	if err != nil {
		t.Fatalf("Offset() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d rings, want none", len(out))
	}
	out, err = k.Offset(nil, 3)
	if err != nil || len(out) != 0 {
		t.Errorf("Offset(nil) = %v, %v", out, err)
	}
}

func TestOffsetInward(t *testing.T) {
	k := newKernel()
	out, err := k.Offset([]geom.Polygon{square(0, 0, 10)}, -2)
	if err != nil {
		t.Fatalf("Offset() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d rings, want 1", len(out))
	}
	b := out[0].Bounds()
	if !near(b.Min.X, 2, 1e-9) || !near(b.Max.Y, 8, 1e-9) {
		t.Errorf("bounds = %+v, want 2..8", b)
	}
}

func TestClipLines(t *testing.T) {
	k := newKernel()
	region, err := k.Difference([]geom.Polygon{square(0, 0, 10)}, []geom.Polygon{square(4, 4, 2)})
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	tests := []struct {
		name string
		line []geom.Point
		want [][2]float64 // x of piece start and end
	}{
		{"left to right", []geom.Point{{-5, 5}, {15, 5}}, [][2]float64{{0, 4}, {6, 10}}},
		{"right to left", []geom.Point{{15, 5}, {-5, 5}}, [][2]float64{{10, 6}, {4, 0}}},
		{"below hole", []geom.Point{{-5, 2}, {15, 2}}, [][2]float64{{0, 10}}},
		{"outside", []geom.Point{{-5, 12}, {15, 12}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.ClipLines([][]geom.Point{tt.line}, region)
			if err != nil {
				t.Fatalf("ClipLines() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pieces, want %d: %v", len(got), len(tt.want), got)
			}
			for i, w := range tt.want {
				pc := got[i]
				if !near(pc[0].X, w[0], 1e-9) || !near(pc[len(pc)-1].X, w[1], 1e-9) {
					t.Errorf("piece %d runs %v..%v, want %v..%v", i, pc[0].X, pc[len(pc)-1].X, w[0], w[1])
				}
			}
		})
	}
}

func TestClipLinesClosedRing(t *testing.T) {
	k := newKernel()
	ring := append([]geom.Point(square(0, 0, 10)), geom.Pt(0, 0))

	type result struct {
		pieces [][]geom.Point
		err    error
	}
	done := make(chan result, 1)
	go func() {
		got, err := k.ClipLines([][]geom.Point{ring}, []geom.Polygon{square(-1, -1, 7)})
		done <- result{got, err}
	}()
	var r result
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ClipLines() did not return for a line ending at its start")
	}
	if r.err != nil {
		t.Fatalf("ClipLines() error = %v", r.err)
	}
	if len(r.pieces) != 2 {
		t.Fatalf("got %d pieces, want 2: %v", len(r.pieces), r.pieces)
	}
	// The bottom edge comes first, then the left edge running down to the
	// start, stopping one grid unit short of it.
	tol := 2 * geom.DefaultSettings().Epsilon()
	ends := [][2]geom.Point{
		{geom.Pt(0, 0), geom.Pt(6, 0)},
		{geom.Pt(0, 6), geom.Pt(0, 0)},
	}
	for i, w := range ends {
		pc := r.pieces[i]
		if pc[0].Dist(w[0]) > tol || pc[len(pc)-1].Dist(w[1]) > tol {
			t.Errorf("piece %d runs %v..%v, want %v..%v", i, pc[0], pc[len(pc)-1], w[0], w[1])
		}
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	run := func() (err error) {
		defer guard("test", &err)
		panic("boom")
	}
	err := run()
	if !errors.Is(err, camerr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestResolutionRounding(t *testing.T) {
	k := New(geom.Settings{Resolution: 10})
	got, err := k.Union([]geom.Polygon{{{0.04, 0}, {1.01, 0}, {1, 1}, {0, 1}}}, nil)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rings, want 1", len(got))
	}
	for _, v := range got[0] {
		if v.X != 0 && v.X != 1 {
			t.Errorf("vertex %v not snapped to the 0.1 grid", v)
		}
	}
}
