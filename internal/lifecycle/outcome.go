package lifecycle

import (
	"fmt"
	"runtime/debug"
)

// Outcome is the result of a best-effort call: either a value or a degraded
// marker carrying the reason and the underlying error.
type Outcome[T any] struct {
	Value    T
	Reason   string
	Err      error
	degraded bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Degraded records a failed call.
func Degraded[T any](reason string, err error) Outcome[T] {
	return Outcome[T]{Reason: reason, Err: err, degraded: true}
}

// IsDegraded reports whether the call failed.
func (o Outcome[T]) IsDegraded() bool {
	return o.degraded
}

// Get returns the value and whether it is usable.
func (o Outcome[T]) Get() (T, bool) {
	return o.Value, !o.degraded
}

// attempt runs fn and turns an error or a panic into a degraded Outcome. The
// failure is logged, counted and noted on rep when rep is non-nil.
func attempt[T any](e *Executor, rep *Report, call string, fn func() (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Degraded[T](call, fmt.Errorf("panic: %v", r))
			e.logger.Error("collaborator panicked",
				"call", call,
				"panic", r,
				"stack", string(debug.Stack()))
			e.noteDegraded(rep, call)
		}
	}()

	v, err := fn()
	if err != nil {
		e.logger.Warn("best-effort call degraded",
			"call", call,
			"error", err)
		e.noteDegraded(rep, call)
		return Degraded[T](call, err)
	}
	return Ok(v)
}

func (e *Executor) noteDegraded(rep *Report, call string) {
	e.recorder.RecordDegraded(call)
	if rep != nil {
		rep.Degraded = append(rep.Degraded, call)
	}
}
