// Package job defines a machining job: the tool library, machine heights and
// the ordered list of operations to cut. A Job is built once per evaluation
// and treated as immutable afterwards.
package job

import (
	"fmt"

	"github.com/chazu/kerf/pkg/gcode"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/shape"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/trochoid"
)

// Kind is the type of an operation.
type Kind int

const (
	KindPocket Kind = iota
	KindContour
	KindOutside
	KindPeel
	KindRaster
	KindEngrave
	KindDrill
)

var kindNames = [...]string{
	KindPocket:  "pocket",
	KindContour: "contour",
	KindOutside: "outside",
	KindPeel:    "peel",
	KindRaster:  "raster",
	KindEngrave: "engrave",
	KindDrill:   "drill",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the kind called name.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// NeedsClosed reports whether the kind only cuts closed boundaries.
func (k Kind) NeedsClosed() bool {
	return k != KindEngrave && k != KindDrill
}

// HasTabs reports whether the kind can leave tabs standing.
func (k Kind) HasTabs() bool {
	return k == KindContour || k == KindOutside || k == KindEngrave
}

// Hole is a round hole for a drill operation.
type Hole struct {
	Center   geom.Point
	Diameter float64
}

// Operation is one cut of a job.
type Operation struct {
	Name     string
	Kind     Kind
	Shape    shape.Shape
	ToolName string
	Props    toolpath.OperationProps

	TabCount  int          // tabs spaced evenly along the path
	TabPoints []geom.Point // tabs snapped to the path near these points
	TabWidth  float64      // tab width beyond one tool diameter, as a fraction of it

	Dogbones    bool
	Trochoidal  bool
	Trochoid    trochoid.Params
	Margin      float64 // stock left on pocket walls
	RasterAngle float64 // degrees
	Zigzag      bool
	Finish      bool // raster finishing pass
	PeelWidth   float64
	Hole        Hole
}

// HasTabs reports whether the operation asks for tabs.
func (op Operation) HasTabs() bool {
	return op.TabCount > 0 || len(op.TabPoints) > 0
}

// Machine holds the travel heights and spindle limits of the machine.
type Machine struct {
	SafeZ     float64 `toml:"safe_z"`
	Clearance float64 `toml:"clearance"`
	MinRPM    float64 `toml:"min_rpm"`
	MaxRPM    float64 `toml:"max_rpm"`
	MaxFeed   float64 `toml:"max_feed"`
}

// DefaultMachine returns the machine used when nothing is configured.
func DefaultMachine() Machine {
	d := gcode.DefaultMachine()
	return Machine{SafeZ: d.SafeZ, Clearance: d.Clearance}
}

// Travel returns the heights the G-code emitter moves between cuts at.
func (m Machine) Travel() gcode.Machine {
	return gcode.Machine{SafeZ: m.SafeZ, Clearance: m.Clearance}
}

// Limits returns the spindle and feed limits for deriving tools.
func (m Machine) Limits() tool.Machine {
	return tool.Machine{MinRPM: m.MinRPM, MaxRPM: m.MaxRPM, MaxFeed: m.MaxFeed}
}

// Job is the complete input to planning.
type Job struct {
	Settings   geom.Settings
	Machine    Machine
	Tools      map[string]tool.Tool
	Operations []Operation

	// Defined records which settings sections the job set itself, so that
	// configuration does not override them.
	Defined Defined
}

// Defined flags the job-level sections set explicitly.
type Defined struct {
	Settings bool
	Machine  bool
}

// New returns an empty job with default settings.
func New() *Job {
	return &Job{
		Settings: geom.DefaultSettings(),
		Machine:  DefaultMachine(),
		Tools:    make(map[string]tool.Tool),
	}
}

// AddTool registers t under its name, replacing any tool of that name.
func (j *Job) AddTool(t tool.Tool) {
	j.Tools[t.Name] = t
}

// Add appends an operation.
func (j *Job) Add(op Operation) {
	j.Operations = append(j.Operations, op)
}

// Lookup returns the operation called name, or nil.
func (j *Job) Lookup(name string) *Operation {
	for i := range j.Operations {
		if j.Operations[i].Name == name {
			return &j.Operations[i]
		}
	}
	return nil
}

// Tool returns the tool an operation cuts with.
func (j *Job) Tool(op Operation) (tool.Tool, bool) {
	t, ok := j.Tools[op.ToolName]
	return t, ok
}
