// Package apperr defines the error categories shared by the engine and its
// outer layers.
package apperr

import "errors"

// Validation errors: the payload does not satisfy the schema.
var (
	ErrValidation  = errors.New("validation failed")
	ErrImmutableID = errors.New("id is immutable")
)

// Resolution errors: an id, path or uniqueness requirement could not be met.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrOutsideRoot   = errors.New("path escapes workspace root")
	ErrNotConfirmed  = errors.New("destructive operation not confirmed")
)

// Categories returned by Category.
const (
	CategoryValidation = "validation"
	CategoryResolution = "resolution"
	CategoryInternal   = "internal"
)

// Category classifies err so callers can react differently to bad field
// content and to lookups that failed.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrImmutableID):
		return CategoryValidation
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrDuplicateID),
		errors.Is(err, ErrOutsideRoot),
		errors.Is(err, ErrNotConfirmed):
		return CategoryResolution
	default:
		return CategoryInternal
	}
}
