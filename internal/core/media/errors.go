package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown assets, private assets requested
	// anonymously, and assignment tokens that do not resolve to an
	// unassigned upload.
	ErrNotFound = errors.New("media not found")

	// ErrUnsupportedType is returned when an upload is not an accepted image type
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrTooLarge is returned when an upload exceeds the configured size
	ErrTooLarge = errors.New("media too large")
)

// ValidationError represents a rejected upload with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// IsNotFound checks if error is a media not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
