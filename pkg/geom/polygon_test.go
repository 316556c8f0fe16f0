package geom

import (
	"math"
	"testing"
)

func TestPolygonOrientation(t *testing.T) {
	sq := Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if sq.Area() != 100 || !sq.IsCCW() {
		t.Fatalf("Area = %v, want 100 and CCW", sq.Area())
	}
	cw := sq.Reversed()
	if cw.Area() != -100 || cw.IsCCW() {
		t.Errorf("reversed Area = %v, want -100", cw.Area())
	}
	tests := []struct {
		name string
		in   Polygon
		ccw  bool
	}{
		{"ccw to ccw", sq, true},
		{"ccw to cw", sq, false},
		{"cw to ccw", cw, true},
		{"cw to cw", cw, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Oriented(tt.ccw).IsCCW(); got != tt.ccw {
				t.Errorf("Oriented(%v).IsCCW() = %v", tt.ccw, got)
			}
		})
	}
}

func TestPolygonContains(t *testing.T) {
	l := Polygon{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	tests := []struct {
		p    Point
		want bool
	}{
		{Pt(2, 2), true},
		{Pt(8, 2), true},
		{Pt(2, 8), true},
		{Pt(8, 8), false},
		{Pt(-1, 5), false},
	}
	for _, tt := range tests {
		if got := l.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox should be empty")
	}
	b = b.Extend(Pt(1, 2)).Extend(Pt(-3, 5))
	if b.Width() != 4 || b.Height() != 3 {
		t.Errorf("size = %vx%v, want 4x3", b.Width(), b.Height())
	}
	if !b.Grow(1).Contains(b) || b.Contains(b.Grow(1)) {
		t.Error("Grow containment wrong")
	}
	if b.Union(EmptyBox()) != b {
		t.Error("union with empty box changed b")
	}
}

func TestArcSteps(t *testing.T) {
	s := DefaultSettings()
	if got := s.ArcSteps(10, 0); got != 1 {
		t.Errorf("zero span steps = %d, want 1", got)
	}
	full := s.ArcSteps(10, 2*math.Pi)
	half := s.ArcSteps(10, -math.Pi)
	if full < 2*half-1 || full > 2*half {
		t.Errorf("full=%d half=%d, want full about twice half", full, half)
	}
	// Chord sag of each step stays within tolerance.
	step := 2 * math.Pi / float64(full)
	if sag := 10 * (1 - math.Cos(step/2)); sag > s.ArcTolerance {
		t.Errorf("sag %v exceeds tolerance", sag)
	}
}

func TestCircleFrom3(t *testing.T) {
	c, ok := CircleFrom3(Pt(1, 0), Pt(0, 1), Pt(-1, 0))
	if !ok || !c.Center.Near(Point{}, 1e-12) || math.Abs(c.R-1) > 1e-12 {
		t.Errorf("CircleFrom3 = %+v, %v", c, ok)
	}
	if _, ok := CircleFrom3(Pt(0, 0), Pt(1, 1), Pt(2, 2)); ok {
		t.Error("collinear points should not define a circle")
	}
}
