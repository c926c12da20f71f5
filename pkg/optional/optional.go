// Package optional describes the outcome of setting up a feature the ingestion run can
// live without: it either came up, is unavailable and the caller continues degraded,
// or it failed and the caller must abort.
package optional

import "fmt"

// State is the setup outcome of an optional feature.
type State int

const (
	StateAvailable State = iota
	StateUnavailable
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result carries the feature value together with its setup state.
// Value is always usable: for unavailable features it holds the degraded (no-op)
// implementation supplied by the feature package.
type Result[T any] struct {
	Value  T
	State  State
	Reason string
	Err    error
}

// Available wraps a feature that was set up successfully.
func Available[T any](v T) Result[T] {
	return Result[T]{Value: v, State: StateAvailable}
}

// Unavailable wraps the degraded fallback of a feature that is switched off or cannot be reached.
func Unavailable[T any](fallback T, reason string) Result[T] {
	return Result[T]{Value: fallback, State: StateUnavailable, Reason: reason}
}

// Failed reports a setup failure that must stop the caller.
func Failed[T any](err error) Result[T] {
	return Result[T]{State: StateFailed, Err: err}
}

// Degraded reports whether the caller is running without the feature.
func (r Result[T]) Degraded() bool {
	return r.State == StateUnavailable
}

// Unwrap returns the feature value, or the setup error when it failed.
func (r Result[T]) Unwrap() (T, error) {
	if r.State == StateFailed {
		var zero T
		if r.Err == nil {
			return zero, fmt.Errorf("optional feature failed without an error")
		}
		return zero, r.Err
	}
	return r.Value, nil
}
