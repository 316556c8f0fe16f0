package toolpath

import (
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel/clipper"
	"github.com/chazu/kerf/pkg/tool"
)

var testTool = tool.Tool{Name: "t", Diameter: 6, HFeed: 1000, VFeed: 300, MaxDOC: 2, Stepover: 0.4}

func TestDepths(t *testing.T) {
	tests := []struct {
		name  string
		props OperationProps
		doc   float64
		want  []float64
	}{
		{"even", OperationProps{StartDepth: 0, EndDepth: -6}, 2, []float64{-2, -4, -6}},
		{"short last", OperationProps{StartDepth: 0, EndDepth: -5}, 2, []float64{-2, -4, -5}},
		{"single", OperationProps{StartDepth: 0, EndDepth: -1}, 2, []float64{-1}},
		{"raised stock", OperationProps{StartDepth: 10, EndDepth: 7}, 1.5, []float64{8.5, 7}},
		{"inverted", OperationProps{StartDepth: -5, EndDepth: 0}, 2, nil},
		{"fractional", OperationProps{StartDepth: 0, EndDepth: -0.9}, 0.3, []float64{-0.3, -0.6, -0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.props.Depths(tt.doc)
			if len(got) != len(tt.want) {
				t.Fatalf("Depths() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Depths()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
			if len(got) > 0 && got[len(got)-1] != tt.props.EndDepth {
				t.Errorf("last depth %v does not land on %v", got[len(got)-1], tt.props.EndDepth)
			}
		})
	}
}

func TestTabsActive(t *testing.T) {
	p := OperationProps{StartDepth: 0, EndDepth: -6, TabDepth: -4}
	if p.TabsActive(-2) || p.TabsActive(-4) {
		t.Error("tabs should not be active at or above tab depth")
	}
	if !p.TabsActive(-5) {
		t.Error("tabs should be active below tab depth")
	}
	p.TabDepth = -6
	if p.TabsActive(-6) {
		t.Error("tab depth at end depth leaves no tab")
	}
}

func TestValidateProps(t *testing.T) {
	if err := (OperationProps{StartDepth: 0, EndDepth: -3}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := (OperationProps{StartDepth: 0, EndDepth: 0}).Validate(); err == nil {
		t.Error("Validate() should reject zero-depth cut")
	}
}

func TestCachesComputeOnce(t *testing.T) {
	var calls atomic.Int32
	path := geom.PolylinePath(geom.Circle{R: 10}.Polygon(90), true)
	tp := New(path, testTool, WithTransform(func(p geom.Path) geom.Path {
		calls.Add(1)
		return p
	}))
	s := geom.DefaultSettings()

	var wg sync.WaitGroup
	results := make([]geom.Path, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = tp.Optimized(s)
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("transform ran %d times, want 1", got)
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Fatalf("result %d differs", i)
		}
	}
	if !results[0].HasArcs() {
		t.Error("optimized circle should contain arcs")
	}
}

func TestOptimizedRespectsSettings(t *testing.T) {
	path := geom.PolylinePath(geom.Circle{R: 10}.Polygon(90), true)
	s := geom.DefaultSettings()
	s.SimplifyArcs, s.SimplifyLines = false, false
	tp := New(path, testTool)
	if got := tp.Optimized(s); !reflect.DeepEqual(got, path) {
		t.Error("Optimized with simplification off should return the path")
	}
}

// Offsets come back from the polygon kernel rounded to its grid; arc fitting
// must still recognise the round parts.
func TestOptimizedFitsKernelOutput(t *testing.T) {
	s := geom.DefaultSettings()
	k := clipper.New(s)
	disc := geom.Circle{Center: geom.Pt(50, 40), R: 20}.Polygon(100)
	tests := []struct {
		name  string
		delta float64
	}{
		{"outside", 3},
		{"inside", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rings, err := k.Offset([]geom.Polygon{disc}, tt.delta)
			if err != nil {
				t.Fatalf("Offset() error = %v", err)
			}
			if len(rings) != 1 {
				t.Fatalf("got %d rings, want 1", len(rings))
			}
			path := rings[0].Path()
			got := New(path, testTool).Optimized(s)
			if !got.HasArcs() {
				t.Fatal("optimized offset should contain arcs")
			}
			if n, was := len(got.Nodes), len(path.Nodes); n > was/2 {
				t.Errorf("optimized to %d nodes from %d, want at most half", n, was)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	path := geom.PolylinePath([]geom.Point{{0, 0}, {10, 5}}, false)
	if b := New(path, testTool).Bounds(); b.Max != geom.Pt(10, 5) {
		t.Errorf("Bounds() = %+v", b)
	}
	inherited := geom.Box{Min: geom.Pt(-1, -1), Max: geom.Pt(20, 20)}
	if b := New(path, testTool, WithBounds(inherited)).Bounds(); b != inherited {
		t.Errorf("Bounds() = %+v, want inherited %+v", b, inherited)
	}
}

func TestToolpathsNesting(t *testing.T) {
	mk := func(x float64) *Toolpath {
		return New(geom.PolylinePath([]geom.Point{{x, 0}, {x + 1, 1}}, false), testTool)
	}
	a, b, c, d := mk(0), mk(10), mk(20), mk(30)
	inner := NewToolpaths(b, NewToolpaths(c))
	all := NewToolpaths(a, inner)
	all.Add(d)

	if got := all.Flatten(); !reflect.DeepEqual(got, []*Toolpath{a, b, c, d}) {
		t.Errorf("Flatten() order wrong")
	}
	if all.Len() != 4 {
		t.Errorf("Len() = %d, want 4", all.Len())
	}
	var depths []int
	all.Walk(func(_ *Toolpath, depth int) bool {
		depths = append(depths, depth)
		return true
	})
	if !reflect.DeepEqual(depths, []int{0, 1, 2, 0}) {
		t.Errorf("Walk depths = %v", depths)
	}
	b2 := all.Bounds()
	if b2.Min.X != 0 || b2.Max.X != 31 {
		t.Errorf("Bounds() = %+v", b2)
	}
	var n int
	all.Walk(func(*Toolpath, int) bool { n++; return n < 2 })
	if n != 2 {
		t.Errorf("Walk did not stop early, visited %d", n)
	}
}
