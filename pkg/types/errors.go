package types

import "errors"

// Resolution and query errors
var (
	// ErrUnresolvedField is returned when a field path cannot be resolved
	// against an entity. Registries skip such paths.
	ErrUnresolvedField = errors.New("unresolved field path")
	// ErrUnknownEntity is returned when an entity type is not declared.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrFieldNotFound is returned when a criterion names a field that is not
	// in the registry.
	ErrFieldNotFound = errors.New("field not found")
	// ErrOperatorNotAllowed is returned when a criterion's operator code is not
	// legal for its field's type.
	ErrOperatorNotAllowed = errors.New("operator not allowed for field type")
	// ErrInvalidValue is returned when a raw value cannot be coerced to the
	// field's native representation.
	ErrInvalidValue = errors.New("invalid value for field type")
)

// Validation errors
var (
	ErrEmptyEntity = errors.New("entity cannot be empty")
	ErrInvalidID   = errors.New("id must be positive")
)
