package capability

import (
	"errors"

	"github.com/google/uuid"
)

// ErrMalformed is returned when a presented token is not a canonical UUID.
// Callers map it to their own not-found error without touching the store.
var ErrMalformed = errors.New("malformed capability token")

// canonicalLength is the length of the 8-4-4-4-12 hex form.
const canonicalLength = 36

// Token is an opaque, unguessable bearer secret that grants a single
// operation on a resource of kind T. The type parameter only tags what the
// token is for, so a media assignment token cannot be handed to post
// verification by mistake.
//
// Tokens are only resolved by the service that owns them and are never
// serialized in public views.
type Token[T any] struct {
	value uuid.UUID
}

// New mints a fresh random token.
func New[T any]() Token[T] {
	return Token[T]{value: uuid.New()}
}

// Parse validates a presented token. Only the canonical lower or upper case
// 36 character form is accepted (no braces, no urn prefix).
func Parse[T any](raw string) (Token[T], error) {
	if len(raw) != canonicalLength {
		return Token[T]{}, ErrMalformed
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return Token[T]{}, ErrMalformed
	}
	return Token[T]{value: u}, nil
}

// MustParse is Parse for values read back from trusted storage.
func MustParse[T any](raw string) Token[T] {
	t, err := Parse[T](raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the canonical lower case form.
func (t Token[T]) String() string {
	if t.IsZero() {
		return ""
	}
	return t.value.String()
}

// IsZero reports whether the token was never minted.
func (t Token[T]) IsZero() bool {
	return t.value == uuid.Nil
}

// Equal compares two tokens of the same kind.
func (t Token[T]) Equal(other Token[T]) bool {
	return t.value == other.value
}
