// Package outcome provides the two-variant result type every dispatch
// pipeline is built on. An Outcome is either Ok with a value or Err with a
// typed domain.Failure; combinators never mutate their receiver and never
// let a panic escape - faults raised inside a continuation are captured and
// normalized into an Err.
package outcome

import (
	"fmt"

	"github.com/parlorchat/parlor/internal/domain"
)

// Outcome holds exactly one populated variant: a success value or a Failure.
// The zero Outcome is not meaningful; construct via Ok or Err.
type Outcome[T any] struct {
	value T
	fail  *domain.Failure
}

// Ok constructs a success Outcome.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Err constructs a failure Outcome.
func Err[T any](f domain.Failure) Outcome[T] {
	return Outcome[T]{fail: &f}
}

// ErrFrom constructs a failure Outcome from a domain error.
func ErrFrom[T any](err error) Outcome[T] {
	return Err[T](domain.FailureFrom(err))
}

// IsOk reports whether the success variant is populated.
func (o Outcome[T]) IsOk() bool { return o.fail == nil }

// IsErr reports whether the failure variant is populated.
func (o Outcome[T]) IsErr() bool { return o.fail != nil }

// Failure returns the failure variant. Only meaningful when IsErr.
func (o Outcome[T]) Failure() domain.Failure {
	if o.fail == nil {
		return domain.Failure{}
	}
	return *o.fail
}

// Unwrap returns the success value, panicking on an Err. Reserved for code
// paths that have already proven success.
func (o Outcome[T]) Unwrap() T {
	if o.fail != nil {
		panic(fmt.Sprintf("outcome: Unwrap on Err: %v", *o.fail))
	}
	return o.value
}

// UnwrapOr returns the success value, or def on an Err.
func (o Outcome[T]) UnwrapOr(def T) T {
	if o.fail != nil {
		return def
	}
	return o.value
}

// Or returns o unchanged when Ok; on Err it invokes the fallback and returns
// its result. Used for get-or-create semantics. A panic inside the fallback
// is captured as an unexpected Failure.
func (o Outcome[T]) Or(f func() Outcome[T]) (out Outcome[T]) {
	if o.fail == nil {
		return o
	}
	defer capture(&out)
	return f()
}

// Inspect invokes f with the success value and returns o unchanged. A panic
// inside f is captured and converted into an Err rather than propagated.
func (o Outcome[T]) Inspect(f func(T)) (out Outcome[T]) {
	if o.fail != nil {
		return o
	}
	defer capture(&out)
	f(o.value)
	return o
}

// InspectErr invokes f with the failure and returns o unchanged. A panic
// inside f is captured and converted into an Err.
func (o Outcome[T]) InspectErr(f func(domain.Failure)) (out Outcome[T]) {
	if o.fail == nil {
		return o
	}
	defer capture(&out)
	f(*o.fail)
	return o
}

// MapErr transforms the failure side, leaving an Ok untouched.
func (o Outcome[T]) MapErr(f func(domain.Failure) domain.Failure) Outcome[T] {
	if o.fail == nil {
		return o
	}
	return Err[T](f(*o.fail))
}

// AndThen chains o into f on success; on Err it short-circuits and propagates
// the existing failure untouched. A panic raised by f is captured as an
// unexpected Failure. Continuations are free to block (close over a
// context.Context); the short-circuit and fault-capture semantics do not
// change. Package-level because Go methods cannot introduce type parameters.
func AndThen[T, U any](o Outcome[T], f func(T) Outcome[U]) (out Outcome[U]) {
	if o.fail != nil {
		return Err[U](*o.fail)
	}
	defer capture(&out)
	return f(o.value)
}

// Map transforms the success value, leaving an Err untouched.
func Map[T, U any](o Outcome[T], f func(T) U) (out Outcome[U]) {
	if o.fail != nil {
		return Err[U](*o.fail)
	}
	defer capture(&out)
	return Ok(f(o.value))
}

// Guard runs f and converts a panic into an Err. It is the entry point for
// pipelines whose first step is itself fallible.
func Guard[T any](f func() Outcome[T]) (out Outcome[T]) {
	defer capture(&out)
	return f()
}

// capture recovers a panic into the out parameter as an unexpected Failure.
func capture[T any](out *Outcome[T]) {
	if r := recover(); r != nil {
		*out = Err[T](domain.UnexpectedFailure(fmt.Sprintf("uncaught fault: %v", r)))
	}
}
