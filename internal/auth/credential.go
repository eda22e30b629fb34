package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Curbside/internal/core/users"
)

// Issuer name embedded in every credential
const issuerName = "curbside"

// AlgorithmHS256 is the only accepted signing method
const AlgorithmHS256 = "HS256"

var (
	// ErrInvalidCredential is returned for any credential that does not verify
	ErrInvalidCredential = errors.New("invalid credential")
)

// UserLookup resolves the subject of a credential
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
}

// Claims are the registered claims of an owner credential. Subject is the
// user's email.
type Claims struct {
	jwt.RegisteredClaims
}

// CredentialIssuer issues and verifies owner credentials.
//
// Each credential is an HS256 JWT keyed by HMAC-SHA256(serverKey, user secret),
// so rotating a user's secret revokes every credential issued to them and a
// leaked server key alone is not enough to mint one.
type CredentialIssuer struct {
	lookup    UserLookup
	now       func() time.Time
	serverKey []byte
	ttl       time.Duration
}

// NewCredentialIssuer creates an issuer. lookup may be nil when the issuer
// is only used to mint credentials.
func NewCredentialIssuer(serverKey []byte, ttl time.Duration, lookup UserLookup) (*CredentialIssuer, error) {
	if len(serverKey) < 32 {
		return nil, fmt.Errorf("credential server key must be at least 32 bytes, got %d", len(serverKey))
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CredentialIssuer{
		lookup:    lookup,
		now:       time.Now,
		serverKey: serverKey,
		ttl:       ttl,
	}, nil
}

// Issue mints a credential for user
func (i *CredentialIssuer) Issue(user *users.User) (string, error) {
	if user == nil || user.Email == "" || user.Secret == "" {
		return "", fmt.Errorf("cannot issue credential without user email and secret")
	}

	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey(user.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Verify checks the credential and returns the user it was issued to
func (i *CredentialIssuer) Verify(ctx context.Context, credential string) (*users.User, error) {
	if i.lookup == nil {
		return nil, fmt.Errorf("credential issuer has no user lookup")
	}

	var user *users.User
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			return nil, ErrInvalidCredential
		}
		u, err := i.lookup.GetUserByEmail(ctx, claims.Subject)
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrInvalidCredential
		}
		if err != nil {
			return nil, &lookupError{err: err}
		}
		user = u
		return i.signingKey(u.Secret), nil
	}

	_, err := jwt.ParseWithClaims(credential, &Claims{}, keyFunc,
		jwt.WithValidMethods([]string{AlgorithmHS256}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		// lookup failures other than not-found are infrastructure errors
		var lookupErr *lookupError
		if errors.As(err, &lookupErr) {
			return nil, lookupErr.err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return user, nil
}

func (i *CredentialIssuer) signingKey(secret string) []byte {
	mac := hmac.New(sha256.New, i.serverKey)
	mac.Write([]byte(secret))
	return mac.Sum(nil)
}

type lookupError struct {
	err error
}

func (e *lookupError) Error() string { return e.err.Error() }
func (e *lookupError) Unwrap() error { return e.err }
