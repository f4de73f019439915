package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/ssogate/pkg/contextkeys"
	"github.com/platinummonkey/ssogate/pkg/enforce"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
)

// GroupEnforcement gates group-scoped routes on the SSO enforcement decision.
// Routes must carry the governing group's ID in the path variable named by
// groupVar.
type GroupEnforcement struct {
	svc      *enforce.Service
	scope    enforce.SessionScope
	groupVar string
	logger   *observability.Logger
}

// NewGroupEnforcement creates the enforcement middleware. groupVar defaults
// to "id".
func NewGroupEnforcement(svc *enforce.Service, scope enforce.SessionScope, groupVar string, logger *observability.Logger) *GroupEnforcement {
	if groupVar == "" {
		groupVar = "id"
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &GroupEnforcement{
		svc:      svc,
		scope:    scope,
		groupVar: groupVar,
		logger:   logger,
	}
}

// Handler wraps an HTTP handler with SSO enforcement
func (m *GroupEnforcement) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		groupID, ok := httputil.ParsePathInt64OrError(w, r, m.groupVar)
		if !ok {
			return
		}

		ctx := r.Context()
		restricted, err := m.svc.GroupAccessRestricted(ctx, groupID, contextkeys.GetUser(ctx), m.requestContext(ctx))
		if err != nil {
			m.logger.WithError(err).WithField("group_id", groupID).Error("enforcement check failed")
			httputil.WriteInternalError(w, err)
			return
		}
		if restricted {
			httputil.WriteForbidden(w, "active SSO session required for this group")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestContext assembles the enforcement request facts from the identity
// middleware's context values.
func (m *GroupEnforcement) requestContext(ctx context.Context) enforce.RequestContext {
	rc := enforce.RequestContext{}
	if sessionID := contextkeys.GetSessionID(ctx); sessionID != "" {
		rc.Sessions = m.scope(sessionID)
	}
	if user := contextkeys.GetUser(ctx); user != nil {
		rc.WebSessionUserID = &user.ID
	}
	return rc
}
