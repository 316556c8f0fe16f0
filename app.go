package main

import (
	"bytes"
	"context"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/gcode"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/plan"
	"github.com/chazu/kerf/pkg/progress"
)

// App runs job scripts through evaluation, planning and G-code emission.
type App struct {
	engine *engine.Engine
	config *config.Config
	sink   progress.Sink
}

// Message is an error or warning tied, when known, to a source line.
type Message struct {
	Line    int
	Col     int
	Message string
}

// OperationSummary describes one planned operation.
type OperationSummary struct {
	Name      string
	Kind      string
	Tool      string
	Toolpaths int
	Paths     []geom.Path
}

// Result is everything one evaluation produced.
type Result struct {
	GCode      string
	Errors     []Message
	Warnings   []Message
	Operations []OperationSummary
	Settings   geom.Settings
}

// NewApp creates an App using cfg for materials, loop parameters and the
// defaults a script does not set. A nil cfg means the built-in defaults.
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	return &App{
		engine: engine.NewEngine(
			engine.WithMaterials(cfg.Materials),
			engine.WithTrochoid(cfg.Trochoid),
		),
		config: cfg,
		sink:   progress.Discard,
	}
}

// Evaluate takes a job script and returns its program or the reasons there
// is none. Warnings never stop generation.
func (a *App) Evaluate(ctx context.Context, source string) Result {
	log := logging.Logger()
	result := Result{
		Errors:     []Message{},
		Warnings:   []Message{},
		Operations: []OperationSummary{},
	}

	// Step 1: Evaluate the script into a job.
	j, evalErrs, err := a.engine.Evaluate(ctx, source)
	if err != nil {
		log.Error("evaluation failed", "err", err)
		result.Errors = append(result.Errors, Message{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, Message{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 2: Fill in what the script left to the configuration and check
	// the job as a whole.
	a.config.Apply(j)
	result.Settings = j.Settings
	errs, warnings := job.Split(job.Validate(j))
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, Message{Message: w.Error()})
	}
	if len(errs) > 0 {
		for _, e := range errs {
			result.Errors = append(result.Errors, Message{Message: e.Error()})
		}
		return result
	}

	// Step 3: Plan every operation and emit one program.
	results, err := plan.Plan(ctx, j, nil, a.sink)
	if err != nil {
		log.Error("planning failed", "err", err)
		result.Errors = append(result.Errors, Message{Message: "planning failed: " + err.Error()})
		return result
	}
	var buf bytes.Buffer
	if err := plan.Emit(gcode.NewText(&buf), j, results); err != nil {
		result.Errors = append(result.Errors, Message{Message: "emitting failed: " + err.Error()})
		return result
	}
	result.GCode = buf.String()

	for _, r := range results {
		sum := OperationSummary{
			Name: r.Operation.Name,
			Kind: r.Operation.Kind.String(),
			Tool: r.Tool.Name,
		}
		for _, tp := range r.Toolpaths().Flatten() {
			sum.Paths = append(sum.Paths, tp.Path)
		}
		sum.Toolpaths = len(sum.Paths)
		result.Operations = append(result.Operations, sum)
	}
	return result
}
