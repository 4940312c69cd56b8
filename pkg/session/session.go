// Package session carries the signed-in desk user on a request context. Components
// that attribute actions to a user receive it from their caller's context and never
// look it up from process-wide state.
package session

import (
	"context"
	"strings"
)

// User identifies the operator acting through the client.
type User struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user attached to ctx, if any.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && strings.TrimSpace(u.Name) != ""
}

// Actor returns the user name for audit attribution, or "anonymous".
func Actor(ctx context.Context) string {
	if u, ok := FromContext(ctx); ok {
		return u.Name
	}
	return "anonymous"
}
