package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Curbside/internal/core/users"
)

type stubLookup struct {
	err   error
	users map[string]*users.User
}

func (s *stubLookup) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[email]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

var testServerKey = []byte(strings.Repeat("k", 32))

func newTestIssuer(t *testing.T, lookup UserLookup) *CredentialIssuer {
	t.Helper()
	issuer, err := NewCredentialIssuer(testServerKey, time.Hour, lookup)
	require.NoError(t, err)
	return issuer
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	user := &users.User{Email: "a@x.com", Secret: "s1"}
	issuer := newTestIssuer(t, &stubLookup{users: map[string]*users.User{"a@x.com": user}})

	credential, err := issuer.Issue(user)
	require.NoError(t, err)

	got, err := issuer.Verify(context.Background(), credential)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestVerify_RotatedSecretRevokes(t *testing.T) {
	user := &users.User{Email: "a@x.com", Secret: "s1"}
	lookup := &stubLookup{users: map[string]*users.User{"a@x.com": user}}
	issuer := newTestIssuer(t, lookup)

	credential, err := issuer.Issue(user)
	require.NoError(t, err)

	lookup.users["a@x.com"] = &users.User{Email: "a@x.com", Secret: "s2"}

	_, err = issuer.Verify(context.Background(), credential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_Expired(t *testing.T) {
	user := &users.User{Email: "a@x.com", Secret: "s1"}
	issuer := newTestIssuer(t, &stubLookup{users: map[string]*users.User{"a@x.com": user}})

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	credential, err := issuer.Issue(user)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(context.Background(), credential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_UnknownUser(t *testing.T) {
	user := &users.User{Email: "gone@x.com", Secret: "s1"}
	issuer := newTestIssuer(t, &stubLookup{users: map[string]*users.User{}})

	credential, err := issuer.Issue(user)
	require.NoError(t, err)

	_, err = issuer.Verify(context.Background(), credential)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerify_LookupFailureIsNotACredentialError(t *testing.T) {
	user := &users.User{Email: "a@x.com", Secret: "s1"}
	lookup := &stubLookup{users: map[string]*users.User{"a@x.com": user}}
	issuer := newTestIssuer(t, lookup)

	credential, err := issuer.Issue(user)
	require.NoError(t, err)

	lookup.err = errors.New("db down")
	_, err = issuer.Verify(context.Background(), credential)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredential)
	assert.Contains(t, err.Error(), "db down")
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	user := &users.User{Email: "a@x.com", Secret: "s1"}
	issuer := newTestIssuer(t, &stubLookup{users: map[string]*users.User{"a@x.com": user}})

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuerName,
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestNewCredentialIssuer_ShortKey(t *testing.T) {
	_, err := NewCredentialIssuer([]byte("short"), time.Hour, nil)
	assert.Error(t, err)
}

func TestIssue_RequiresSecret(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	_, err := issuer.Issue(&users.User{Email: "a@x.com"})
	assert.Error(t, err)
}
