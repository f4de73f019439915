package enforce

import (
	"context"
	"time"

	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/sso"
)

// DefaultSessionTimeout is the rolling window within which a sign-in keeps a
// session active when the IdP declared no expiry of its own.
const DefaultSessionTimeout = 24 * time.Hour

// Resource is anything an enforcement decision can be asked about. Only
// *hierarchy.Group and *hierarchy.Project are valid; passing anything else
// is a programming error and panics.
type Resource interface {
	IsPublic() bool
}

// PolicyStore resolves groups, root ancestors, and membership facts.
// Implemented by *hierarchy.Store.
type PolicyStore interface {
	GetGroup(ctx context.Context, id int64) (*hierarchy.Group, error)
	RootAncestor(ctx context.Context, group *hierarchy.Group) (*hierarchy.Group, error)
	IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error)
	IsProjectMember(ctx context.Context, userID, projectID int64) (bool, error)
	IsGroupOwner(ctx context.Context, userID, groupID int64) (bool, error)
	HasSSOLink(ctx context.Context, userID, groupID int64) (bool, error)
}

// ProviderStore resolves SSO provider configurations.
// Implemented by *sso.Storage.
type ProviderStore interface {
	GetProvider(ctx context.Context, id int64) (*sso.Provider, error)
	GetProviderForGroup(ctx context.Context, groupID int64) (*sso.Provider, error)
}

// ExpiryModes selects the expiry strategy per group.
// Implemented by *toggles.Source.
type ExpiryModes interface {
	ExpiryMode(groupID int64) sso.ExpiryMode
}

// SessionState is one web session's SSO session facts.
// Implemented by *session.State.
type SessionState interface {
	LastSignIn(ctx context.Context, providerID int64) (*time.Time, error)
	SessionExpiry(ctx context.Context, providerID int64) (*time.Time, error)
	RecordSignIn(ctx context.Context, providerID int64, at time.Time, expiresAt *time.Time) error
	ActiveSessions(ctx context.Context) (map[string]time.Time, error)
}

// RequestContext carries the caller-supplied facts about the live request.
// It is threaded explicitly through every check; the engine keeps no ambient
// request state.
type RequestContext struct {
	// Sessions is the current web session's SSO state. Nil means no session
	// facts are available, so no session can be active.
	Sessions SessionState

	// WebSessionUserID identifies who owns the live interactive web session.
	// Nil marks a background or system-initiated check with no live session.
	WebSessionUserID *int64
}

// InUserWebActivity reports whether the check runs inside the given user's
// own live interactive session.
func (rc RequestContext) InUserWebActivity(user *hierarchy.User) bool {
	return user != nil && rc.WebSessionUserID != nil && *rc.WebSessionUserID == user.ID
}

// CheckOptions tune one AccessRestricted call
type CheckOptions struct {
	// SessionTimeout overrides DefaultSessionTimeout; zero keeps the default
	SessionTimeout time.Duration

	// SkipOwnerCheck disables the owner escape hatch. Security-sensitive
	// callers set this so owners cannot bypass their own group's policy.
	SkipOwnerCheck bool
}

func (o CheckOptions) timeout() time.Duration {
	if o.SessionTimeout > 0 {
		return o.SessionTimeout
	}
	return DefaultSessionTimeout
}
