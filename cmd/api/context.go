// cmd/api/context.go
// Typed accessors for the values middleware stores in the request context.
package main

import (
	"context"
	"net/http"

	"github.com/aoideee/bookstore-api/internal/data"
)

// contextKey is a private type for request-context keys, so no other package
// can collide with the values stored here.
type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

// contextSetUser returns a copy of r whose context carries the authenticated user.
func (app *applicationDependencies) contextSetUser(r *http.Request, user *data.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser retrieves the authenticated user from the request context.
// It panics if no user is present, which only happens if a handler that
// expects authentication was registered without the requireAuth middleware.
func (app *applicationDependencies) contextGetUser(r *http.Request) *data.User {
	user, ok := r.Context().Value(userContextKey).(*data.User)
	if !ok {
		panic("missing user value in request context")
	}
	return user
}

// requestIDFromContext returns the request id set by the requestID middleware,
// or an empty string when called outside a request (e.g. in tests).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
