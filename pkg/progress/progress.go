// Package progress couples cooperative cancellation with fractional progress
// reporting for long-running toolpath computations.
//
// A Tracker is owned by a single operation and is not safe for concurrent
// use. Aggregate combines the trackers of parallel operations.
package progress

import (
	"context"
	"math"
	"sync"

	"github.com/chazu/kerf/pkg/camerr"
)

// Sink receives progress as a fraction in [0, 1].
type Sink interface {
	Report(fraction float64)
}

// Func adapts a function to the Sink interface.
type Func func(fraction float64)

// Report calls f(fraction).
func (f Func) Report(fraction float64) { f(fraction) }

// Discard is a Sink that drops all reports.
var Discard Sink = Func(func(float64) {})

// Tracker checks for cancellation and publishes monotonically non-decreasing
// progress over a sub-range of its sink.
type Tracker struct {
	ctx    context.Context
	sink   Sink
	op     string
	lo, hi float64
	last   *float64 // shared by a tracker and its sub-trackers
}

// New returns a Tracker covering the whole [0, 1] range of sink.
// A nil ctx never cancels and a nil sink discards reports.
func New(ctx context.Context, sink Sink, op string) *Tracker {
	if ctx == nil {
		ctx = context.Background()
	}
	if sink == nil {
		sink = Discard
	}
	last := -1.0
	return &Tracker{ctx: ctx, sink: sink, op: op, lo: 0, hi: 1, last: &last}
}

// Context returns the tracker's context.
func (t *Tracker) Context() context.Context { return t.ctx }

// Check returns a camerr.ErrCancelled error if the context is done.
func (t *Tracker) Check() error {
	return camerr.Check(t.ctx, t.op)
}

// Step checks for cancellation and then reports done/total of the tracker's
// range. Reports that would move progress backwards are dropped.
func (t *Tracker) Step(done, total float64) error {
	if err := t.Check(); err != nil {
		return err
	}
	frac := 1.0
	if total > 0 {
		frac = math.Max(0, math.Min(1, done/total))
	}
	t.publish(t.lo + (t.hi-t.lo)*frac)
	return nil
}

// Done reports the end of the tracker's range.
func (t *Tracker) Done() {
	t.publish(t.hi)
}

// Sub returns a tracker for the [lo, hi] fraction of this tracker's range.
func (t *Tracker) Sub(lo, hi float64) *Tracker {
	w := t.hi - t.lo
	return &Tracker{
		ctx:  t.ctx,
		sink: t.sink,
		op:   t.op,
		lo:   t.lo + w*lo,
		hi:   t.lo + w*hi,
		last: t.last,
	}
}

func (t *Tracker) publish(v float64) {
	if v <= *t.last {
		return
	}
	*t.last = v
	t.sink.Report(v)
}

// Aggregate averages the progress of n concurrent operations into one sink.
type Aggregate struct {
	mu    sync.Mutex
	sink  Sink
	parts []float64
	last  float64
}

// NewAggregate returns an Aggregate over n parts reporting to sink.
func NewAggregate(sink Sink, n int) *Aggregate {
	if sink == nil {
		sink = Discard
	}
	return &Aggregate{sink: sink, parts: make([]float64, n), last: -1}
}

// Part returns the sink for part i. It is safe to use from any goroutine.
func (a *Aggregate) Part(i int) Sink {
	return Func(func(fraction float64) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if fraction > a.parts[i] {
			a.parts[i] = fraction
		}
		var sum float64
		for _, p := range a.parts {
			sum += p
		}
		total := 1.0
		if len(a.parts) > 0 {
			total = sum / float64(len(a.parts))
		}
		if total > a.last {
			a.last = total
			a.sink.Report(total)
		}
	})
}
