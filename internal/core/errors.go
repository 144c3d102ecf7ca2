package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DomainError is a categorized domain-level failure.
//
// Domain errors include:
//   - Invalid transition: the entity's state machine forbids from -> to
//   - Unsupported version: a trail operation carries an unknown envelope version
//   - Validation failed: a payload violates its entity schema in strict mode
type DomainError struct {
	// Code identifies the error category.
	Code DomainErrorCode

	// Message is a human-readable description.
	Message string

	// Entity identifies the affected entity type, if any.
	Entity EntityType

	// ID identifies the affected entity, if any.
	ID string
}

// DomainErrorCode categorizes domain errors.
type DomainErrorCode string

const (
	// ErrCodeInvalidTransition indicates a forbidden state-machine edge.
	ErrCodeInvalidTransition DomainErrorCode = "INVALID_TRANSITION"

	// ErrCodeUnsupportedVersion indicates a trail envelope version this
	// build cannot replay.
	ErrCodeUnsupportedVersion DomainErrorCode = "UNSUPPORTED_VERSION"

	// ErrCodeValidationFailed indicates a schema violation in strict mode.
	ErrCodeValidationFailed DomainErrorCode = "VALIDATION_FAILED"

	// ErrCodeInvalidInput indicates a caller-supplied value outside the
	// accepted domain (unknown enum value, empty required field).
	ErrCodeInvalidInput DomainErrorCode = "INVALID_INPUT"
)

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Entity != "" && e.ID != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Code, e.Message, e.Entity, e.ID)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidTransition returns true if the error is an invalid transition
// error. Uses errors.As to handle wrapped errors.
func IsInvalidTransition(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeInvalidTransition
	}
	return false
}

// IsUnsupportedVersion returns true if the error is an unsupported trail
// version error. Uses errors.As to handle wrapped errors.
func IsUnsupportedVersion(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeUnsupportedVersion
	}
	return false
}

// IsValidationFailed returns true if the error is a strict-mode schema
// validation error. Uses errors.As to handle wrapped errors.
func IsValidationFailed(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeValidationFailed
	}
	return false
}

// NewInvalidTransitionError creates a DomainError for a forbidden
// state-machine edge.
func NewInvalidTransitionError(entity EntityType, id, from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %q to %q", from, to),
		Entity:  entity,
		ID:      id,
	}
}

// NewUnsupportedVersionError creates a DomainError for an unknown trail
// envelope version.
func NewUnsupportedVersionError(version int, file string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnsupportedVersion,
		Message: fmt.Sprintf("trail version %d in %s (supported: %d)", version, file, TrailVersion),
	}
}

// NewValidationError creates a DomainError for a schema violation.
func NewValidationError(entity EntityType, id, detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidationFailed,
		Message: detail,
		Entity:  entity,
		ID:      id,
	}
}

// NewInvalidInputError creates a DomainError for a bad caller-supplied value.
func NewInvalidInputError(detail string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInput,
		Message: detail,
	}
}
