package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// Resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	// Authorization errors
	ErrUnauthorized = errors.New("authentication required")
	ErrNotMember    = errors.New("user is not a member of this surface")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyName    = errors.New("name cannot be empty")

	// Operational errors
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service temporarily unavailable")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrNotFound,
	ErrAlreadyExists,
	ErrUnauthorized,
	ErrNotMember,
	ErrInvalidInput,
	ErrEmptyName,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermissionDenied returns true if the error represents a permission issue.
// Not-found and not-a-member are deliberately indistinguishable to callers so
// the real-time surface cannot be used to probe for entity existence.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrNotMember) || errors.Is(err, ErrUnauthorized)
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
