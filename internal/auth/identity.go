// Package auth carries the acting user explicitly through request
// contexts and issues the tokens that establish it over HTTP.
package auth

import (
	"context"
	"strings"

	apperrors "github.com/julianstephens/rehab/internal/errors"
)

// ErrNoIdentity is returned when an operation needs a signed-in user
var ErrNoIdentity = apperrors.New(apperrors.KindUnauthorized, "you must be logged in")

// Identity is the user an operation acts for
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Valid reports whether the identity names a user
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != ""
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.Valid()
}

// Require returns the identity in ctx or ErrNoIdentity
func Require(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}
