package domain

import "errors"

// Sentinel errors shared by the workflow services. Handlers translate them
// to the response envelope; everything else surfaces as a store failure.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("not authorized")
	ErrDuplicateRequest   = errors.New("enrollment request already exists")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrAlreadyMarked      = errors.New("attendance already marked for this session")
	ErrInvalidCode        = errors.New("invalid attendance code or no active session found")
	ErrNotEnrolled        = errors.New("student is not enrolled in this course")
	ErrValidation         = errors.New("missing or malformed required field")
	ErrExhaustedCodeSpace = errors.New("could not generate a unique attendance code")
)

// Kind returns the stable machine-readable kind string for err, or
// "store_unavailable" for anything outside the domain set.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrAlreadyMarked):
		return "already_marked"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrExhaustedCodeSpace):
		return "exhausted_code_space"
	default:
		return "store_unavailable"
	}
}
