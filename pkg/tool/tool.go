// Package tool models milling cutters and derives spindle speed, feed rates
// and depth of cut from material and machine limits.
package tool

import (
	"math"

	"github.com/chazu/kerf/pkg/camerr"
)

// Tool is a cutter with its cutting parameters.
type Tool struct {
	Name          string  `toml:"name"`
	Diameter      float64 `toml:"diameter"`        // mm
	HFeed         float64 `toml:"hfeed"`           // horizontal feed, mm/min
	VFeed         float64 `toml:"vfeed"`           // plunge feed, mm/min
	MaxDOC        float64 `toml:"max_doc"`         // max depth of cut per pass, mm
	Stepover      float64 `toml:"stepover"`        // fraction of diameter
	Climb         bool    `toml:"climb"`           // climb rather than conventional milling
	MinHelixRatio float64 `toml:"min_helix_ratio"` // smallest helix diameter as a fraction of diameter
	Flutes        int     `toml:"flutes"`
	RPM           float64 `toml:"rpm"`
}

// Validate checks that t can cut.
func (t Tool) Validate() error {
	const op = "tool: validate"
	switch {
	case t.Diameter <= 0:
		return camerr.InvalidInput(op, "%q: diameter %g must be positive", t.Name, t.Diameter)
	case t.HFeed <= 0 || t.VFeed <= 0:
		return camerr.InvalidInput(op, "%q: feeds %g/%g must be positive", t.Name, t.HFeed, t.VFeed)
	case t.MaxDOC <= 0:
		return camerr.InvalidInput(op, "%q: depth of cut %g must be positive", t.Name, t.MaxDOC)
	case t.Stepover <= 0 || t.Stepover > 1:
		return camerr.InvalidInput(op, "%q: stepover %g outside (0, 1]", t.Name, t.Stepover)
	case t.MinHelixRatio < 0:
		return camerr.InvalidInput(op, "%q: helix ratio %g is negative", t.Name, t.MinHelixRatio)
	}
	return nil
}

func (t Tool) Radius() float64           { return t.Diameter / 2 }
func (t Tool) StepoverDistance() float64 { return t.Stepover * t.Diameter }
func (t Tool) MinHelixDiameter() float64 { return t.MinHelixRatio * t.Diameter }

// Slope is the steepest descent the tool tolerates while moving
// horizontally: plunge feed over horizontal feed.
func (t Tool) Slope() float64 {
	if t.HFeed <= 0 {
		return 0
	}
	return t.VFeed / t.HFeed
}

// Material holds the cutting data of a stock material.
type Material struct {
	Name         string  `toml:"name"`
	SurfaceSpeed float64 `toml:"surface_speed"` // m/min
	ChipLoad     float64 `toml:"chip_load"`     // mm per tooth per mm of diameter
	DOCFactor    float64 `toml:"doc_factor"`    // max depth of cut as a multiple of diameter
	PlungeRatio  float64 `toml:"plunge_ratio"`  // plunge feed as a fraction of horizontal feed
}

// Machine holds the spindle and feed limits of a machine.
type Machine struct {
	MinRPM  float64 `toml:"min_rpm"`
	MaxRPM  float64 `toml:"max_rpm"`
	MaxFeed float64 `toml:"max_feed"` // mm/min, 0 for unlimited
}

// Cutter is the geometry of a cutter before cutting data is derived.
type Cutter struct {
	Name          string
	Diameter      float64
	Flutes        int
	Stepover      float64
	Climb         bool
	MinHelixRatio float64
}

// Derive computes the cutting parameters of cutter in mat on machine m.
// Spindle speed follows from the surface speed and is capped at the machine
// maximum; a speed below the machine minimum is an error.
func Derive(mat Material, cutter Cutter, m Machine) (Tool, error) {
	const op = "tool: derive"
	if cutter.Diameter <= 0 {
		return Tool{}, camerr.InvalidInput(op, "%q: diameter %g must be positive", cutter.Name, cutter.Diameter)
	}
	if mat.SurfaceSpeed <= 0 || mat.ChipLoad <= 0 {
		return Tool{}, camerr.InvalidInput(op, "material %q lacks cutting data", mat.Name)
	}
	flutes := max(cutter.Flutes, 1)

	rpm := mat.SurfaceSpeed * 1000 / (math.Pi * cutter.Diameter)
	if m.MaxRPM > 0 {
		rpm = math.Min(rpm, m.MaxRPM)
	}
	if rpm < m.MinRPM {
		return Tool{}, camerr.ToolConstraint(op, "%q in %q: spindle speed %.0f below machine minimum %.0f",
			cutter.Name, mat.Name, rpm, m.MinRPM)
	}
	hfeed := rpm * float64(flutes) * mat.ChipLoad * cutter.Diameter
	if m.MaxFeed > 0 {
		hfeed = math.Min(hfeed, m.MaxFeed)
	}
	plunge := mat.PlungeRatio
	if plunge <= 0 {
		plunge = 0.5
	}
	docFactor := mat.DOCFactor
	if docFactor <= 0 {
		docFactor = 0.5
	}
	t := Tool{
		Name:          cutter.Name,
		Diameter:      cutter.Diameter,
		HFeed:         hfeed,
		VFeed:         hfeed * plunge,
		MaxDOC:        cutter.Diameter * docFactor,
		Stepover:      cutter.Stepover,
		Climb:         cutter.Climb,
		MinHelixRatio: cutter.MinHelixRatio,
		Flutes:        flutes,
		RPM:           rpm,
	}
	if t.Stepover == 0 {
		t.Stepover = 0.4
	}
	return t, nil
}

// DefaultMaterials returns cutting data for common router stock.
func DefaultMaterials() []Material {
	return []Material{
		{Name: "softwood", SurfaceSpeed: 500, ChipLoad: 0.006, DOCFactor: 1, PlungeRatio: 0.5},
		{Name: "hardwood", SurfaceSpeed: 400, ChipLoad: 0.004, DOCFactor: 0.75, PlungeRatio: 0.4},
		{Name: "plywood", SurfaceSpeed: 450, ChipLoad: 0.005, DOCFactor: 0.75, PlungeRatio: 0.4},
		{Name: "mdf", SurfaceSpeed: 500, ChipLoad: 0.006, DOCFactor: 1, PlungeRatio: 0.5},
		{Name: "acrylic", SurfaceSpeed: 300, ChipLoad: 0.004, DOCFactor: 0.5, PlungeRatio: 0.3},
		{Name: "aluminium", SurfaceSpeed: 200, ChipLoad: 0.002, DOCFactor: 0.25, PlungeRatio: 0.2},
	}
}

// FindMaterial returns the material called name from mats.
func FindMaterial(mats []Material, name string) (Material, bool) {
	for _, m := range mats {
		if m.Name == name {
			return m, true
		}
	}
	return Material{}, false
}
