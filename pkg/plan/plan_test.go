package plan_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/gcode"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/plan"
	"github.com/chazu/kerf/pkg/progress"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

func endmill() tool.Tool {
	return tool.Tool{
		Name: "6mm", Diameter: 6, HFeed: 1000, VFeed: 300,
		MaxDOC: 2, Stepover: 0.4, Climb: true,
	}
}

func props(start, end, tab float64) toolpath.OperationProps {
	return toolpath.OperationProps{StartDepth: start, EndDepth: end, TabDepth: tab}
}

// sampleJob has one operation of most kinds, in a fixed order.
func sampleJob() *job.Job {
	j := job.New()
	j.AddTool(endmill())
	j.Add(job.Operation{
		Name: "recess", Kind: job.KindPocket, ToolName: "6mm",
		Shape: shape.Rect(10, 10, 40, 30), Props: props(0, -3, -3),
	})
	j.Add(job.Operation{
		Name: "hole", Kind: job.KindDrill, ToolName: "6mm",
		Hole: job.Hole{Center: geom.Pt(80, 20), Diameter: 10}, Props: props(0, -5, -5),
	})
	j.Add(job.Operation{
		Name: "slot", Kind: job.KindContour, ToolName: "6mm",
		Shape: shape.Rect(70, 40, 20, 20), Props: props(0, -2, -2),
	})
	j.Add(job.Operation{
		Name: "face", Kind: job.KindRaster, ToolName: "6mm",
		Shape: shape.Rect(0, 60, 50, 20), Props: props(0, -1, -1),
	})
	j.Add(job.Operation{
		Name: "cutout", Kind: job.KindOutside, ToolName: "6mm",
		Shape: shape.Rect(0, 0, 100, 100), Props: props(0, -6, -4),
		TabCount: 4,
	})
	return j
}

func TestPlanOrderAndKinds(t *testing.T) {
	j := sampleJob()
	results, err := plan.Plan(context.Background(), j, nil, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(results) != len(j.Operations) {
		t.Fatalf("results = %d, want %d", len(results), len(j.Operations))
	}
	for i, r := range results {
		if r.Operation.Name != j.Operations[i].Name {
			t.Errorf("result %d is %q, want %q", i, r.Operation.Name, j.Operations[i].Name)
		}
		if r.Tool.Name != "6mm" {
			t.Errorf("%s: tool = %q", r.Operation.Name, r.Tool.Name)
		}
	}

	tests := []struct {
		name      string
		wantPaths bool
	}{
		{"recess", true},
		{"hole", false},
		{"slot", true},
		{"face", true},
		{"cutout", true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := results[i].Toolpaths().Len()
			if tt.wantPaths && n == 0 {
				t.Error("expected toolpaths")
			}
			if !tt.wantPaths && len(results[i].Cuts) != 0 {
				t.Errorf("expected no cuts, got %d", len(results[i].Cuts))
			}
		})
	}
}

func TestPlanTabsPerToolpath(t *testing.T) {
	results, err := plan.Plan(context.Background(), sampleJob(), nil, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	cutout := results[4]
	if len(cutout.Cuts) == 0 {
		t.Fatal("expected cuts")
	}
	var tabCount int
	for i, c := range cutout.Cuts {
		if c.Toolpaths.Len() != 1 {
			t.Errorf("cut %d holds %d toolpaths, want 1", i, c.Toolpaths.Len())
		}
		tabCount += len(c.Tabs)
	}
	if tabCount == 0 {
		t.Error("tabbed operation produced no tabs")
	}

	for _, c := range results[0].Cuts {
		if len(c.Tabs) != 0 {
			t.Error("pocket should not carry tabs")
		}
	}
}

func TestPlanEngraveFollowsOutline(t *testing.T) {
	j := job.New()
	j.AddTool(endmill())
	line := shape.Polyline([]geom.Point{geom.Pt(0, 0), geom.Pt(20, 0), geom.Pt(20, 10)})
	j.Add(job.Operation{
		Name: "mark", Kind: job.KindEngrave, ToolName: "6mm",
		Shape: line, Props: props(0, -0.5, -0.5),
	})
	results, err := plan.Plan(context.Background(), j, nil, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	flat := results[0].Toolpaths().Flatten()
	if len(flat) != 1 {
		t.Fatalf("toolpaths = %d, want 1", len(flat))
	}
	if flat[0].Path.Closed {
		t.Error("engraving an open polyline should stay open")
	}
	if got, want := flat[0].Path.Length(), line.Boundary.Length(); math.Abs(got-want) > 1e-9 {
		t.Errorf("path length = %g, want %g", got, want)
	}
}

func TestPlanRejectsInvalidJob(t *testing.T) {
	j := sampleJob()
	j.Operations[0].ToolName = "missing"
	results, err := plan.Plan(context.Background(), j, nil, nil)
	if !errors.Is(err, camerr.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if results != nil {
		t.Error("results should be nil on error")
	}
	if !strings.Contains(err.Error(), "recess") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestPlanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := plan.Plan(ctx, sampleJob(), nil, nil)
	if !camerr.IsCancelled(err) {
		t.Fatalf("error = %v, want cancellation", err)
	}
	if results != nil {
		t.Error("results should be nil when cancelled")
	}
}

func TestPlanProgress(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []float64
	)
	sink := progress.Func(func(f float64) {
		mu.Lock()
		seen = append(seen, f)
		mu.Unlock()
	})
	if _, err := plan.Plan(context.Background(), sampleJob(), nil, sink); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(seen) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Errorf("progress went backwards: %g after %g", seen[i], seen[i-1])
		}
	}
	if last := seen[len(seen)-1]; math.Abs(last-1) > 1e-9 {
		t.Errorf("final progress = %g, want 1", last)
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	w := gcode.NewText(&buf)
	if err := plan.Generate(context.Background(), sampleJob(), nil, w, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "G17 G21 G90 G40" {
		t.Errorf("first block = %q", lines[0])
	}
	if lines[len(lines)-1] != "M2" {
		t.Errorf("last block = %q", lines[len(lines)-1])
	}
	if !strings.Contains(out, "G2") && !strings.Contains(out, "G3") {
		t.Error("drill helix should produce arc moves")
	}
	if !strings.Contains(out, "Z-6.000") {
		t.Error("outside cut should reach its end depth")
	}
}

func TestGenerateInvalidWritesNothing(t *testing.T) {
	j := sampleJob()
	j.Operations[1].Hole.Diameter = 2
	var buf bytes.Buffer
	err := plan.Generate(context.Background(), j, nil, gcode.NewText(&buf), nil)
	if !errors.Is(err, camerr.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for an invalid job", buf.Len())
	}
}
