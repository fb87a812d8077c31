// Package identity resolves API credentials to user principals. The real
// authentication system (signup, OTP, password reset) lives elsewhere; this
// package only maps an already-issued key to its owner.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnknownKey is returned when no user owns the presented API key.
var ErrUnknownKey = errors.New("unknown api key")

// User is an authenticated principal.
type User struct {
	ID      string
	Name    string
	Email   string
	Staff   bool
	KeyHash string
}

// Repository provides lookup of users by their API key hash.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*User, error)
}

// Resolver authenticates API keys via peppered HMAC-SHA256 hashes.
type Resolver struct {
	repo   Repository
	pepper []byte
}

// NewResolver creates a Resolver with the given repository and HMAC pepper.
func NewResolver(repo Repository, pepper []byte) *Resolver {
	return &Resolver{repo: repo, pepper: pepper}
}

// HashKey computes the stored form of an API key: hex(HMAC-SHA256(pepper, key)).
func (r *Resolver) HashKey(key string) string {
	mac := hmac.New(sha256.New, r.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Resolve authenticates the raw API key and returns its owner. The final
// constant-time comparison guards against timing side-channels even though
// the lookup already succeeded: the stored hash could differ from what we
// computed if the repository returns a stale or wrong row.
func (r *Resolver) Resolve(ctx context.Context, key string) (*User, error) {
	if key == "" {
		return nil, ErrUnknownKey
	}

	computed := r.HashKey(key)
	u, err := r.repo.FindByKeyHash(ctx, computed)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return nil, ErrUnknownKey
		}
		return nil, errors.Wrap(err, "lookup key")
	}

	computedBytes, err := hex.DecodeString(computed)
	if err != nil {
		return nil, ErrUnknownKey
	}
	storedBytes, err := hex.DecodeString(u.KeyHash)
	if err != nil {
		return nil, ErrUnknownKey
	}
	if subtle.ConstantTimeCompare(computedBytes, storedBytes) != 1 {
		return nil, ErrUnknownKey
	}

	return u, nil
}

type userContextKey struct{}

// WithUser stores the authenticated principal on the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext retrieves the authenticated principal, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*User)
	return u, ok
}
