// Package context carries request-scoped values: the business scope and trace ids.
package context

import (
	"context"

	"stockledger/internal/core/id"
)

// Scope identifies on whose behalf an operation runs.
// Every transaction and balance lookup is confined to Scope.BusinessID.
type Scope struct {
	BusinessID id.ID
	UserID     string
}

type scopeKey struct{}

// WithScope adds Scope to context.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// GetScope returns the Scope from context and whether one was set.
func GetScope(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// BusinessID returns the scoped business or the nil ID.
func BusinessID(ctx context.Context) id.ID {
	if s, ok := GetScope(ctx); ok {
		return s.BusinessID
	}
	return id.Nil()
}

// UserID returns the acting user or an empty string.
func UserID(ctx context.Context) string {
	if s, ok := GetScope(ctx); ok {
		return s.UserID
	}
	return ""
}
