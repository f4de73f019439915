package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/platinummonkey/ssogate/pkg/contextkeys"
	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
)

const (
	// HeaderRequestID carries the request ID; generated when absent
	HeaderRequestID = "X-Request-ID"

	// HeaderUserID carries the authenticated user's ID, set by the upstream
	// auth proxy. Absent means an anonymous request.
	HeaderUserID = "X-User-ID"

	// HeaderSessionID carries the caller's web session ID
	HeaderSessionID = "X-Session-ID"
)

// UserLoader resolves user IDs to user records.
// Implemented by *hierarchy.Store.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*hierarchy.User, error)
}

// Identity is the identity middleware. It trusts the upstream identity
// headers and makes the resolved user, session ID, and request ID available
// through the request context.
type Identity struct {
	users  UserLoader
	logger *observability.Logger
}

// NewIdentity creates the identity middleware
func NewIdentity(users UserLoader, logger *observability.Logger) *Identity {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Identity{users: users, logger: logger}
}

// Handler wraps an HTTP handler with identity resolution
func (m *Identity) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)

		if sessionID := r.Header.Get(HeaderSessionID); sessionID != "" {
			ctx = contextkeys.WithSessionID(ctx, sessionID)
		}

		if rawUserID := r.Header.Get(HeaderUserID); rawUserID != "" {
			userID, err := strconv.ParseInt(rawUserID, 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid "+HeaderUserID+" header")
				return
			}

			user, err := m.users.GetUser(ctx, userID)
			if err != nil {
				m.logger.WithError(err).WithField("user_id", userID).Error("failed to load user")
				httputil.WriteInternalError(w, err)
				return
			}
			if user == nil {
				httputil.WriteUnauthorized(w, "unknown user")
				return
			}
			ctx = contextkeys.WithUser(ctx, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
