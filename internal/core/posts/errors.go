package posts

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common post operations
var (
	// ErrNotFound is returned when a post is unknown, not public, or its
	// verification token has already been redeemed
	ErrNotFound = errors.New("post not found")

	// ErrNotAuthorized is returned for every failed owner guard. It does not
	// distinguish a missing post from someone else's post.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrRejected is returned when a create request is refused by the ban
	// list or the anti-abuse check. It carries no further detail.
	ErrRejected = errors.New("post rejected")

	// ErrInvalidTransition is returned by Post methods called from a state
	// that does not allow them
	ErrInvalidTransition = errors.New("invalid post state transition")
)

// FieldError is one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a submission
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation error (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) addAll(other *ValidationError) {
	if other != nil {
		e.Fields = append(e.Fields, other.Fields...)
	}
}

func (e *ValidationError) hasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string // e.g., "post", "media"
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr) || errors.Is(err, ErrNotFound)
}

// ConflictError is returned when a conditional update lost a race, e.g. two
// requests redeeming the same verification token. It unwraps to ErrNotFound
// because the loser must be told the token no longer resolves.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Resource, e.ID)
}

func (e *ConflictError) Unwrap() error {
	return ErrNotFound
}

// IsConflict checks if error is due to a lost conditional update
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}
