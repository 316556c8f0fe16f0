package job

import (
	"fmt"
	"math"
)

// Severity indicates whether a validation finding blocks planning or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks planning
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Operation string // which operation has the problem (empty if job-level)
	Message   string
	Severity  Severity
}

func (e ValidationError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] operation %q: %s", e.Severity, e.Operation, e.Message)
}

// Validate checks the job and returns every finding. It never mutates j.
func Validate(j *Job) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateTools(j)...)
	errs = append(errs, validateNames(j)...)
	for _, op := range j.Operations {
		errs = append(errs, validateOperation(j, op)...)
	}
	return errs
}

// Split separates findings into blocking errors and warnings.
func Split(findings []ValidationError) (errs, warnings []ValidationError) {
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			warnings = append(warnings, f)
		} else {
			errs = append(errs, f)
		}
	}
	return errs, warnings
}

// HasErrors reports whether any finding blocks planning.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateTools checks every tool in the library that an operation uses.
func validateTools(j *Job) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, op := range j.Operations {
		t, ok := j.Tools[op.ToolName]
		if !ok || seen[op.ToolName] {
			continue
		}
		seen[op.ToolName] = true
		if err := t.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Operation: op.Name,
				Message:   err.Error(),
				Severity:  SeverityError,
			})
		}
	}
	return errs
}

func validateNames(j *Job) []ValidationError {
	var errs []ValidationError
	count := make(map[string]int)
	for _, op := range j.Operations {
		if op.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("%s operation has no name", op.Kind),
				Severity: SeverityError,
			})
			continue
		}
		count[op.Name]++
		if count[op.Name] == 2 {
			errs = append(errs, ValidationError{
				Operation: op.Name,
				Message:   "duplicate operation name",
				Severity:  SeverityError,
			})
		}
	}
	return errs
}

func validateOperation(j *Job, op Operation) []ValidationError {
	var errs []ValidationError
	fail := func(sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{
			Operation: op.Name,
			Message:   fmt.Sprintf(format, args...),
			Severity:  sev,
		})
	}

	t, ok := j.Tools[op.ToolName]
	if !ok {
		fail(SeverityError, "unknown tool %q", op.ToolName)
	}

	p := op.Props
	if p.EndDepth >= p.StartDepth {
		fail(SeverityError, "end depth %g must be below start depth %g", p.EndDepth, p.StartDepth)
	} else if op.HasTabs() && (p.TabDepth < p.EndDepth || p.TabDepth > p.StartDepth) {
		fail(SeverityWarning, "tab depth %g outside [%g, %g]; tabs will not be left", p.TabDepth, p.EndDepth, p.StartDepth)
	}

	if op.Kind == KindDrill {
		switch {
		case op.Hole.Diameter <= 0:
			fail(SeverityError, "hole diameter %g must be positive", op.Hole.Diameter)
		case ok && op.Hole.Diameter < t.Diameter:
			fail(SeverityError, "hole diameter %g is smaller than tool %q", op.Hole.Diameter, t.Name)
		}
		return errs
	}

	if err := op.Shape.Validate(); err != nil {
		fail(SeverityError, "%v", err)
	} else if op.Kind.NeedsClosed() && !op.Shape.IsClosed() {
		fail(SeverityError, "%s needs a closed shape", op.Kind)
	}

	if op.HasTabs() && !op.Kind.HasTabs() {
		fail(SeverityWarning, "tabs are ignored by %s operations", op.Kind)
	}
	if op.Dogbones && op.Kind == KindRaster {
		fail(SeverityWarning, "dogbones are ignored by raster operations")
	}
	if op.Trochoidal && op.Kind != KindContour && op.Kind != KindOutside {
		fail(SeverityWarning, "trochoidal cutting only applies to contours")
	}
	if op.Kind == KindPeel && op.PeelWidth <= 0 {
		fail(SeverityError, "peel width %g must be positive", op.PeelWidth)
	}
	if op.TabWidth < 0 {
		fail(SeverityError, "tab width %g is negative", op.TabWidth)
	}
	if math.IsNaN(op.RasterAngle) || math.IsInf(op.RasterAngle, 0) {
		fail(SeverityError, "raster angle is not finite")
	}
	return errs
}
