package job

import (
	"strings"
	"testing"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func endmill() tool.Tool {
	return tool.Tool{
		Name: "6mm", Diameter: 6, HFeed: 1000, VFeed: 300,
		MaxDOC: 2, Stepover: 0.4, Climb: true,
	}
}

func depths(start, end, tab float64) toolpath.OperationProps {
	return toolpath.OperationProps{StartDepth: start, EndDepth: end, TabDepth: tab}
}

// buildValidJob creates a job with one pocket and one tabbed outside cut.
func buildValidJob() *Job {
	j := New()
	j.AddTool(endmill())
	j.Add(Operation{
		Name: "recess", Kind: KindPocket, ToolName: "6mm",
		Shape: shape.Rect(10, 10, 40, 30),
		Props: depths(0, -4, 0),
	})
	j.Add(Operation{
		Name: "cutout", Kind: KindOutside, ToolName: "6mm",
		Shape:    shape.Rect(0, 0, 60, 50),
		Props:    depths(0, -12, -10),
		TabCount: 4,
	})
	return j
}

// hasFinding returns true if findings contains one of severity sev whose
// message contains substr.
func hasFinding(findings []ValidationError, sev Severity, substr string) bool {
	for _, f := range findings {
		if f.Severity == sev && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Job model
// ---------------------------------------------------------------------------

func TestKindRoundTrip(t *testing.T) {
	for k := KindPocket; k <= KindDrill; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", k.String(), got, ok, k)
		}
	}
	if _, ok := ParseKind("saw"); ok {
		t.Error("ParseKind(saw) should fail")
	}
	if s := Kind(42).String(); s != "Kind(42)" {
		t.Errorf("unknown kind string = %q", s)
	}
}

func TestKindCapabilities(t *testing.T) {
	tests := []struct {
		kind   Kind
		closed bool
		tabs   bool
	}{
		{KindPocket, true, false},
		{KindContour, true, true},
		{KindOutside, true, true},
		{KindPeel, true, false},
		{KindRaster, true, false},
		{KindEngrave, false, true},
		{KindDrill, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.NeedsClosed(); got != tt.closed {
				t.Errorf("NeedsClosed = %v, want %v", got, tt.closed)
			}
			if got := tt.kind.HasTabs(); got != tt.tabs {
				t.Errorf("HasTabs = %v, want %v", got, tt.tabs)
			}
		})
	}
}

func TestNewJobDefaults(t *testing.T) {
	j := New()
	if j.Settings != geom.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", j.Settings)
	}
	if j.Machine.SafeZ != 5 || j.Machine.Clearance != 0.5 {
		t.Errorf("machine = %+v", j.Machine)
	}
	if j.Tools == nil {
		t.Fatal("tool map should be allocated")
	}
}

func TestLookupAndTool(t *testing.T) {
	j := buildValidJob()
	op := j.Lookup("cutout")
	if op == nil {
		t.Fatal("expected operation named cutout")
	}
	if op.Kind != KindOutside {
		t.Errorf("kind = %v, want outside", op.Kind)
	}
	if j.Lookup("missing") != nil {
		t.Error("Lookup(missing) should be nil")
	}
	tl, ok := j.Tool(*op)
	if !ok || tl.Diameter != 6 {
		t.Errorf("Tool = %+v, %v", tl, ok)
	}
}

func TestMachineConversions(t *testing.T) {
	m := Machine{SafeZ: 10, Clearance: 1, MinRPM: 8000, MaxRPM: 24000, MaxFeed: 3000}
	if tr := m.Travel(); tr.SafeZ != 10 || tr.Clearance != 1 {
		t.Errorf("Travel = %+v", tr)
	}
	if l := m.Limits(); l.MinRPM != 8000 || l.MaxRPM != 24000 || l.MaxFeed != 3000 {
		t.Errorf("Limits = %+v", l)
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateValidJob(t *testing.T) {
	if errs := Validate(buildValidJob()); len(errs) != 0 {
		t.Fatalf("expected no findings, got %v", errs)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(j *Job)
		sev    Severity
		substr string
	}{
		{
			name:   "unknown tool",
			mutate: func(j *Job) { j.Operations[0].ToolName = "3mm" },
			sev:    SeverityError,
			substr: "unknown tool",
		},
		{
			name: "duplicate name",
			mutate: func(j *Job) {
				j.Operations[1].Name = "recess"
			},
			sev:    SeverityError,
			substr: "duplicate",
		},
		{
			name:   "missing name",
			mutate: func(j *Job) { j.Operations[0].Name = "" },
			sev:    SeverityError,
			substr: "no name",
		},
		{
			name:   "depth order",
			mutate: func(j *Job) { j.Operations[0].Props = depths(-4, -4, 0) },
			sev:    SeverityError,
			substr: "must be below",
		},
		{
			name:   "tab depth out of range",
			mutate: func(j *Job) { j.Operations[1].Props.TabDepth = -20 },
			sev:    SeverityWarning,
			substr: "tab depth",
		},
		{
			name:   "open shape on pocket",
			mutate: func(j *Job) { j.Operations[0].Shape = shape.Polyline([]geom.Point{{}, {X: 10}}) },
			sev:    SeverityError,
			substr: "closed shape",
		},
		{
			name: "invalid tool",
			mutate: func(j *Job) {
				tl := endmill()
				tl.Stepover = 2
				j.AddTool(tl)
			},
			sev:    SeverityError,
			substr: "stepover",
		},
		{
			name:   "tabs on pocket",
			mutate: func(j *Job) { j.Operations[0].TabCount = 2 },
			sev:    SeverityWarning,
			substr: "tabs are ignored",
		},
		{
			name: "dogbones on raster",
			mutate: func(j *Job) {
				j.Operations[0].Kind = KindRaster
				j.Operations[0].Dogbones = true
			},
			sev:    SeverityWarning,
			substr: "dogbones",
		},
		{
			name:   "peel without width",
			mutate: func(j *Job) { j.Operations[1].Kind = KindPeel },
			sev:    SeverityError,
			substr: "peel width",
		},
		{
			name: "drill hole smaller than tool",
			mutate: func(j *Job) {
				j.Add(Operation{
					Name: "hole", Kind: KindDrill, ToolName: "6mm",
					Props: depths(0, -5, 0),
					Hole:  Hole{Center: geom.Pt(5, 5), Diameter: 4},
				})
			},
			sev:    SeverityError,
			substr: "smaller than tool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := buildValidJob()
			tt.mutate(j)
			findings := Validate(j)
			if !hasFinding(findings, tt.sev, tt.substr) {
				t.Errorf("expected %s containing %q, got %v", tt.sev, tt.substr, findings)
			}
		})
	}
}

func TestValidateOpenEngraveAllowed(t *testing.T) {
	j := New()
	j.AddTool(endmill())
	j.Add(Operation{
		Name: "text", Kind: KindEngrave, ToolName: "6mm",
		Shape: shape.Polyline([]geom.Point{{}, {X: 10}, {X: 10, Y: 5}}),
		Props: depths(0, -1, 0),
	})
	if errs := Validate(j); len(errs) != 0 {
		t.Fatalf("expected no findings, got %v", errs)
	}
}

func TestSplitAndHasErrors(t *testing.T) {
	findings := []ValidationError{
		{Message: "a", Severity: SeverityError},
		{Message: "b", Severity: SeverityWarning},
		{Message: "c", Severity: SeverityWarning},
	}
	errs, warnings := Split(findings)
	if len(errs) != 1 || len(warnings) != 2 {
		t.Errorf("Split = %d errors, %d warnings", len(errs), len(warnings))
	}
	if !HasErrors(findings) {
		t.Error("HasErrors should be true")
	}
	if HasErrors(warnings) {
		t.Error("HasErrors of warnings should be false")
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Operation: "cutout", Message: "bad", Severity: SeverityWarning}
	if got := e.Error(); got != `[warning] operation "cutout": bad` {
		t.Errorf("Error() = %q", got)
	}
	e2 := ValidationError{Message: "job", Severity: SeverityError}
	if got := e2.Error(); got != "[error] job" {
		t.Errorf("Error() = %q", got)
	}
	if s := Severity(7).String(); s != "Severity(7)" {
		t.Errorf("unknown severity = %q", s)
	}
}
