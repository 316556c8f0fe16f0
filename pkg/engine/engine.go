// Package engine provides the Lisp evaluation engine for kerf job scripts.
// It wraps zygomys in a sandboxed environment and produces a job.Job from
// user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/kerf/pkg/camerr"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/logging"
	"github.com/chazu/kerf/pkg/tool"
	"github.com/chazu/kerf/pkg/trochoid"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// DefaultEvalLimit is how long a script may run unless the engine is given
// another limit.
const DefaultEvalLimit = 5 * time.Second

// Engine wraps the zygomys interpreter for job evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	materials []tool.Material
	loops     trochoid.Params
	limit     time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaterials sets the materials that tools may derive cutting data from.
func WithMaterials(m []tool.Material) Option {
	return func(e *Engine) { e.materials = m }
}

// WithTrochoid sets the loop parameters trochoidal operations start from.
func WithTrochoid(p trochoid.Params) Option {
	return func(e *Engine) { e.loops = p }
}

// WithEvalLimit bounds how long one script may run. Zero leaves only the
// caller's context.
func WithEvalLimit(d time.Duration) Option {
	return func(e *Engine) { e.limit = d }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		materials: tool.DefaultMaterials(),
		loops:     trochoid.DefaultParams(),
		limit:     DefaultEvalLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes Lisp source code and produces a new Job.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns job + nil errors + nil error
//   - On parse/eval failure: returns nil job + eval errors + nil error
//   - On cancellation, the evaluation limit or a panic: returns nil + nil + error
func (e *Engine) Evaluate(ctx context.Context, source string) (*job.Job, []EvalError, error) {
	return e.bounded(ctx, func() (*job.Job, []EvalError, error) {
		return e.evaluate(source)
	})
}

// bounded runs eval on its own goroutine until it returns, ctx is done or
// the evaluation limit passes. zygomys cannot be interrupted, so an
// abandoned script runs to completion and its outcome is dropped.
func (e *Engine) bounded(ctx context.Context, eval func() (*job.Job, []EvalError, error)) (*job.Job, []EvalError, error) {
	const op = "engine: evaluate"
	if err := camerr.Check(ctx, op); err != nil {
		return nil, nil, err
	}
	if e.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limit)
		defer cancel()
	}

	type outcome struct {
		job  *job.Job
		errs []EvalError
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: camerr.InvalidInput(op, "script panicked: %v", r)}
			}
		}()
		j, errs, err := eval()
		done <- outcome{j, errs, err}
	}()

	select {
	case o := <-done:
		return o.job, o.errs, o.err
	case <-ctx.Done():
		logging.Logger().Warn("evaluation abandoned", "limit", e.limit, "err", ctx.Err())
		return nil, nil, camerr.Cancelled(op, ctx.Err())
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*job.Job, []EvalError, error) {
	// Empty source is a valid program that produces an empty job.
	if strings.TrimSpace(source) == "" {
		return job.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	j := job.New()
	registerBuiltins(env, j, e.materials, e.loops)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	logging.Logger().Debug("job evaluated",
		"operations", len(j.Operations), "tools", len(j.Tools))
	return j, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
