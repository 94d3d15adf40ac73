package domain

import "errors"

// OutcomeState distinguishes a computed value from the reasons it may be absent.
type OutcomeState string

const (
	OutcomePending OutcomeState = "pending"
	OutcomeEmpty   OutcomeState = "empty"
	OutcomeFailed  OutcomeState = "failed"
	OutcomeReady   OutcomeState = "ready"
)

// Outcome carries a computed value together with its state, so callers can render
// "unavailable" explicitly instead of checking for nil.
type Outcome[T any] struct {
	State  OutcomeState `json:"state"`
	Value  T            `json:"value"`
	Reason string       `json:"reason,omitempty"`
}

// Ready wraps a computed value.
func Ready[T any](v T) Outcome[T] {
	return Outcome[T]{State: OutcomeReady, Value: v}
}

// Empty reports that the inputs for a value were unavailable.
func Empty[T any](reason string) Outcome[T] {
	return Outcome[T]{State: OutcomeEmpty, Reason: reason}
}

// Pending reports that a value has been requested but not computed yet.
func Pending[T any]() Outcome[T] {
	return Outcome[T]{State: OutcomePending}
}

// Failed reports a computation error.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{State: OutcomeFailed, Reason: err.Error()}
}

// OutcomeOf converts a (value, error) pair: ErrMissingData becomes Empty, other errors become Failed.
func OutcomeOf[T any](v T, err error) Outcome[T] {
	switch {
	case err == nil:
		return Ready(v)
	case errors.Is(err, ErrMissingData):
		return Empty[T](err.Error())
	default:
		return Failed[T](err)
	}
}

// IsReady reports whether the outcome holds a value.
func (o Outcome[T]) IsReady() bool {
	return o.State == OutcomeReady
}
