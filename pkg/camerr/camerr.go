// Package camerr defines the error kinds shared by the toolpath engines.
//
// Every error returned by kerf wraps exactly one of the sentinels below, so
// callers classify failures with errors.Is rather than string matching.
package camerr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports geometry or parameters an operation cannot
	// accept, such as an open boundary given to a pocket.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResult reports that an operation produced no geometry at all.
	// Loops that use an empty offset as their stop condition never return it.
	ErrEmptyResult = errors.New("no geometry produced")

	// ErrToolConstraint reports derived cutting parameters outside what the
	// machine supports.
	ErrToolConstraint = errors.New("tool constraint violated")

	// ErrNonConvergence reports an iterative step that shrank below its floor.
	// Generators log it and fall back; it is not returned to callers.
	ErrNonConvergence = errors.New("numeric non-convergence")

	// ErrCancelled reports cooperative cancellation observed mid-computation.
	ErrCancelled = errors.New("cancelled")
)

// InvalidInput returns an error of kind ErrInvalidInput.
func InvalidInput(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrInvalidInput)
}

// EmptyResult returns an error of kind ErrEmptyResult.
func EmptyResult(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrEmptyResult)
}

// ToolConstraint returns an error of kind ErrToolConstraint.
func ToolConstraint(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrToolConstraint)
}

// NonConvergence returns an error of kind ErrNonConvergence.
func NonConvergence(op, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", op, fmt.Sprintf(format, args...), ErrNonConvergence)
}

// Cancelled wraps a context error so that it matches both ErrCancelled and
// the original context error.
func Cancelled(op string, cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%s: %w (%w)", op, ErrCancelled, cause)
}

// Check returns a Cancelled error if ctx is done, nil otherwise.
func Check(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return Cancelled(op, ctx.Err())
	default:
		return nil
	}
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
