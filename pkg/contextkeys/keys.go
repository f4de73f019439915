// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import (
	"context"

	"github.com/platinummonkey/ssogate/pkg/hierarchy"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated *hierarchy.User
	// Set by: middleware.Identity (pkg/middleware/identity.go)
	// Required by: access-check handlers, enforcement middleware
	UserKey Key = "current_user"

	// SessionIDKey contains the caller's web session ID string
	// Set by: middleware.Identity from the X-Session-ID header
	// Required by: sign-in recording and expiry handlers
	SessionIDKey Key = "session_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.Identity
	// Used by: logger, response headers
	RequestIDKey Key = "request_id"
)

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *hierarchy.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the authenticated user from context; nil when anonymous
func GetUser(ctx context.Context) *hierarchy.User {
	if user, ok := ctx.Value(UserKey).(*hierarchy.User); ok {
		return user
	}
	return nil
}

// WithSessionID adds the web session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionID retrieves the web session ID from context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
