package users

import (
	"strings"
	"time"
)

// User is the implicit account behind a submitter email.
// There is no signup: a user row is provisioned the first time a post from
// the email is verified, and its secret keys every credential issued to it.
type User struct {
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Email       string    `json:"email" db:"email"`
	Secret      string    `json:"-" db:"secret"`
	IsModerator bool      `json:"isModerator" db:"is_moderator"`
	Banned      bool      `json:"-" db:"banned"`
}

// NormalizeEmail is the canonical form used as the owner key everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
