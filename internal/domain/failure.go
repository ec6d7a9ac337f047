package domain

import (
	"errors"
	"fmt"
)

// Category classifies a Failure for clients. NotFound deliberately covers both
// missing and forbidden entities of a kind so existence never leaks.
type Category string

const (
	CategoryUnauthenticated Category = "unauthenticated"
	CategoryNotFound        Category = "not_found"
	CategoryAlreadyExists   Category = "already_exists"
	CategoryValidation      Category = "validation_failed"
	CategoryUnexpected      Category = "unexpected"
)

// Severity grades a Failure. Expected client errors are warnings; anything
// escaping the domain's expected error set is an error.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Failure is the typed error half of an Outcome. It is immutable and safe to
// copy; every fault in a dispatch pipeline is normalized into this shape
// before it reaches the transport.
type Failure struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Category, f.Severity, f.Message)
}

// Unauthenticated builds a Failure for calls with no resolvable identity.
func Unauthenticated(msg string) Failure {
	return Failure{Category: CategoryUnauthenticated, Severity: SeverityWarning, Message: msg}
}

// NotFoundFailure builds the collapsed missing-or-forbidden Failure.
func NotFoundFailure(msg string) Failure {
	return Failure{Category: CategoryNotFound, Severity: SeverityWarning, Message: msg}
}

// AlreadyExistsFailure builds a Failure for duplicate creation attempts.
func AlreadyExistsFailure(msg string) Failure {
	return Failure{Category: CategoryAlreadyExists, Severity: SeverityWarning, Message: msg}
}

// ValidationFailure builds a Failure for malformed input.
func ValidationFailure(msg string) Failure {
	return Failure{Category: CategoryValidation, Severity: SeverityWarning, Message: msg}
}

// UnexpectedFailure builds a Failure for uncaught faults.
func UnexpectedFailure(msg string) Failure {
	return Failure{Category: CategoryUnexpected, Severity: SeverityError, Message: msg}
}

// FailureFrom maps a domain error to its Failure. Sentinel errors keep their
// category; everything else becomes an unexpected failure with a generic
// message so internal details never reach clients.
func FailureFrom(err error) Failure {
	var f Failure
	if errors.As(err, &f) {
		return f
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return Unauthenticated(err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotMember):
		return NotFoundFailure(err.Error())
	case errors.Is(err, ErrAlreadyExists):
		return AlreadyExistsFailure(err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyName):
		return ValidationFailure(err.Error())
	default:
		return UnexpectedFailure("internal error")
	}
}
