package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/sso"
)

// Service is the SSO session enforcement engine. It is stateless apart from
// its injected dependencies; concurrent checks for different user/resource
// pairs run fully in parallel.
type Service struct {
	policy    PolicyStore
	providers ProviderStore
	modes     ExpiryModes
	logger    *observability.Logger
	metrics   *Metrics

	// now is swapped in tests
	now func() time.Time
}

// NewService creates the enforcement engine. logger and metrics may be nil.
func NewService(policy PolicyStore, providers ProviderStore, modes ExpiryModes, logger *observability.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		policy:    policy,
		providers: providers,
		modes:     modes,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// AccessRestricted decides whether the user's current session fails the SSO
// policy governing the resource. False means this mechanism does not block
// access; it never means access was granted by some other mechanism.
func (s *Service) AccessRestricted(ctx context.Context, user *hierarchy.User, resource Resource, rc RequestContext, opts CheckOptions) (bool, error) {
	group, err := s.governingGroup(ctx, resource)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, nil
	}

	root, err := s.policy.RootAncestor(ctx, group)
	if err != nil {
		return false, err
	}

	provider, err := s.providers.GetProviderForGroup(ctx, root.ID)
	if err != nil {
		return false, err
	}
	if provider == nil {
		// No provider means no SSO policy applies
		return false, nil
	}

	bypassed, rule, err := s.resourceBypassed(ctx, user, resource, opts.SkipOwnerCheck)
	if err != nil {
		return false, err
	}
	if bypassed {
		s.metrics.recordBypass(rule)
		return false, nil
	}

	restricted, err := s.providerRestricted(ctx, provider, root, user, rc, opts.timeout())
	if err != nil {
		return false, err
	}

	s.metrics.recordDecision(restricted)
	if restricted {
		s.logger.WithFields(map[string]interface{}{
			"provider_id": provider.ID,
			"group_id":    root.ID,
		}).Debug("access restricted: no active SSO session")
	}
	return restricted, nil
}

// AccessRestrictedGroups maps each input group to its root ancestor,
// de-duplicates, and returns the distinct roots whose provider decision
// restricts the user. Result order follows first appearance of each root.
func (s *Service) AccessRestrictedGroups(ctx context.Context, groups []*hierarchy.Group, user *hierarchy.User, rc RequestContext) ([]*hierarchy.Group, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool, len(groups))
	var restricted []*hierarchy.Group

	for _, group := range groups {
		root, err := s.policy.RootAncestor(ctx, group)
		if err != nil {
			return nil, err
		}
		if root == nil || seen[root.ID] {
			continue
		}
		seen[root.ID] = true

		provider, err := s.providers.GetProviderForGroup(ctx, root.ID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			continue
		}

		blocked, err := s.providerRestricted(ctx, provider, root, user, rc, DefaultSessionTimeout)
		if err != nil {
			return nil, err
		}
		if blocked {
			restricted = append(restricted, root)
		}
	}

	return restricted, nil
}

// GroupAccessRestricted resolves the group by ID and runs AccessRestricted
// with default options. Unknown groups are never restricted.
func (s *Service) GroupAccessRestricted(ctx context.Context, groupID int64, user *hierarchy.User, rc RequestContext) (bool, error) {
	group, err := s.policy.GetGroup(ctx, groupID)
	if err != nil || group == nil {
		return false, err
	}
	return s.AccessRestricted(ctx, user, group, rc, CheckOptions{})
}

// UpdateSession records a fresh sign-in for a provider in the caller's
// session state.
func (s *Service) UpdateSession(ctx context.Context, state SessionState, providerID int64, at time.Time, expiresAt *time.Time) error {
	if err := state.RecordSignIn(ctx, providerID, at, expiresAt); err != nil {
		return err
	}
	s.metrics.recordSignIn()
	return nil
}

// governingGroup resolves the group a resource's policy hangs off. Projects
// defer to their owning group. Unknown resource types are a programming
// error and panic.
func (s *Service) governingGroup(ctx context.Context, resource Resource) (*hierarchy.Group, error) {
	switch r := resource.(type) {
	case *hierarchy.Group:
		return r, nil
	case *hierarchy.Project:
		if r == nil {
			return nil, nil
		}
		return s.policy.GetGroup(ctx, r.GroupID)
	default:
		panic(fmt.Sprintf("enforce: resource must be a group or project, got %T", resource))
	}
}

// resourceBypassed evaluates the resource-level bypass rules, in order:
// public resource with no membership, then root-group ownership.
func (s *Service) resourceBypassed(ctx context.Context, user *hierarchy.User, resource Resource, skipOwnerCheck bool) (bool, string, error) {
	if resource.IsPublic() {
		member, err := s.resourceMember(ctx, user, resource)
		if err != nil {
			return false, "", err
		}
		if !member {
			return true, "public_non_member", nil
		}
	}

	if group, ok := resource.(*hierarchy.Group); ok && group != nil && group.IsRoot() && !skipOwnerCheck && user != nil {
		owner, err := s.policy.IsGroupOwner(ctx, user.ID, group.ID)
		if err != nil {
			return false, "", err
		}
		if owner {
			return true, "owner", nil
		}
	}

	return false, "", nil
}

func (s *Service) resourceMember(ctx context.Context, user *hierarchy.User, resource Resource) (bool, error) {
	if user == nil {
		return false, nil
	}
	switch r := resource.(type) {
	case *hierarchy.Group:
		return s.policy.IsGroupMember(ctx, user.ID, r.ID)
	case *hierarchy.Project:
		return s.policy.IsProjectMember(ctx, user.ID, r.ID)
	default:
		panic(fmt.Sprintf("enforce: resource must be a group or project, got %T", resource))
	}
}

// providerRestricted is the single-provider decision: given the root group's
// provider, is the user's session insufficient?
func (s *Service) providerRestricted(ctx context.Context, provider *sso.Provider, group *hierarchy.Group, user *hierarchy.User, rc RequestContext, timeout time.Duration) (bool, error) {
	if user == nil {
		return false, nil
	}

	// Background checks unrelated to the user's live session, and holders of
	// the read-all capability, skip time-based enforcement.
	if !rc.InUserWebActivity(user) || user.ReadAllResources {
		return false, nil
	}

	enforced, err := s.ssoEnforced(ctx, provider, group, user)
	if err != nil {
		return false, err
	}
	if !enforced {
		return false, nil
	}

	active, err := s.activeSession(ctx, rc.Sessions, provider, group, timeout)
	if err != nil {
		return false, err
	}
	return !active, nil
}

// ssoEnforced decides whether the provider's policy binds this user at all
func (s *Service) ssoEnforced(ctx context.Context, provider *sso.Provider, group *hierarchy.Group, user *hierarchy.User) (bool, error) {
	if provider.Enforced {
		return true, nil
	}
	if !provider.Enabled || !group.SSOLicensed {
		return false, nil
	}
	return s.policy.HasSSOLink(ctx, user.ID, group.ID)
}

// activeSession reports whether the session fact for this provider is still
// within its validity window. The interval is half-open: a session is
// expired at exactly its expiry instant.
func (s *Service) activeSession(ctx context.Context, state SessionState, provider *sso.Provider, group *hierarchy.Group, timeout time.Duration) (bool, error) {
	if state == nil {
		return false, nil
	}

	lastSignIn, err := state.LastSignIn(ctx, provider.ID)
	if err != nil {
		return false, err
	}

	if s.modes.ExpiryMode(group.ID) == sso.ExpiryModeIdPDeclared {
		expiry, err := state.SessionExpiry(ctx, provider.ID)
		if err != nil {
			return false, err
		}
		if expiry != nil {
			return s.now().Before(*expiry), nil
		}
	}

	if lastSignIn == nil {
		return false, nil
	}
	return s.now().Before(lastSignIn.Add(timeout)), nil
}
