package enforce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/session"
	"github.com/platinummonkey/ssogate/pkg/sso"
	"github.com/platinummonkey/ssogate/pkg/toggles"
)

type membership struct {
	userID  int64
	scopeID int64
}

type fakePolicy struct {
	groups      map[int64]*hierarchy.Group
	roots       map[int64]*hierarchy.Group
	members     map[membership]bool
	projMembers map[membership]bool
	owners      map[membership]bool
	ssoLinks    map[membership]bool
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{
		groups:      map[int64]*hierarchy.Group{},
		roots:       map[int64]*hierarchy.Group{},
		members:     map[membership]bool{},
		projMembers: map[membership]bool{},
		owners:      map[membership]bool{},
		ssoLinks:    map[membership]bool{},
	}
}

func (f *fakePolicy) addGroup(g *hierarchy.Group, root *hierarchy.Group) {
	f.groups[g.ID] = g
	if root == nil {
		root = g
	}
	f.roots[g.ID] = root
}

func (f *fakePolicy) GetGroup(_ context.Context, id int64) (*hierarchy.Group, error) {
	return f.groups[id], nil
}

func (f *fakePolicy) RootAncestor(_ context.Context, g *hierarchy.Group) (*hierarchy.Group, error) {
	if g == nil {
		return nil, nil
	}
	if root, ok := f.roots[g.ID]; ok {
		return root, nil
	}
	return g, nil
}

func (f *fakePolicy) IsGroupMember(_ context.Context, userID, groupID int64) (bool, error) {
	return f.members[membership{userID, groupID}], nil
}

func (f *fakePolicy) IsProjectMember(_ context.Context, userID, projectID int64) (bool, error) {
	return f.projMembers[membership{userID, projectID}], nil
}

func (f *fakePolicy) IsGroupOwner(_ context.Context, userID, groupID int64) (bool, error) {
	return f.owners[membership{userID, groupID}], nil
}

func (f *fakePolicy) HasSSOLink(_ context.Context, userID, groupID int64) (bool, error) {
	return f.ssoLinks[membership{userID, groupID}], nil
}

type fakeProviders struct {
	byID    map[int64]*sso.Provider
	byGroup map[int64]*sso.Provider
}

func newFakeProviders(providers ...*sso.Provider) *fakeProviders {
	f := &fakeProviders{byID: map[int64]*sso.Provider{}, byGroup: map[int64]*sso.Provider{}}
	for _, p := range providers {
		f.byID[p.ID] = p
		f.byGroup[p.GroupID] = p
	}
	return f
}

func (f *fakeProviders) GetProvider(_ context.Context, id int64) (*sso.Provider, error) {
	return f.byID[id], nil
}

func (f *fakeProviders) GetProviderForGroup(_ context.Context, groupID int64) (*sso.Provider, error) {
	return f.byGroup[groupID], nil
}

type sessionFact struct {
	lastSignIn *time.Time
	expiry     *time.Time
}

type fakeSessions struct {
	facts map[int64]sessionFact
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{facts: map[int64]sessionFact{}}
}

func (f *fakeSessions) LastSignIn(_ context.Context, providerID int64) (*time.Time, error) {
	return f.facts[providerID].lastSignIn, nil
}

func (f *fakeSessions) SessionExpiry(_ context.Context, providerID int64) (*time.Time, error) {
	return f.facts[providerID].expiry, nil
}

func (f *fakeSessions) RecordSignIn(_ context.Context, providerID int64, at time.Time, expiresAt *time.Time) error {
	f.facts[providerID] = sessionFact{lastSignIn: &at, expiry: expiresAt}
	return nil
}

func (f *fakeSessions) ActiveSessions(_ context.Context) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	for id, fact := range f.facts {
		if fact.lastSignIn != nil {
			out[session.ProviderField(id)] = *fact.lastSignIn
		}
		if fact.expiry != nil {
			out[session.ExpiryField(id)] = *fact.expiry
		}
	}
	return out, nil
}

// enforcement fixture: root group 7 with provider 1, subgroup 42, project 13
type fixture struct {
	svc      *Service
	policy   *fakePolicy
	sessions *fakeSessions
	root     *hierarchy.Group
	sub      *hierarchy.Group
	project  *hierarchy.Project
	provider *sso.Provider
	user     *hierarchy.User
	now      time.Time
}

func newFixture(t *testing.T, modes ExpiryModes) *fixture {
	t.Helper()

	root := &hierarchy.Group{ID: 7, Name: "acme", Visibility: hierarchy.VisibilityPrivate, SSOLicensed: true}
	parent := root.ID
	sub := &hierarchy.Group{ID: 42, Name: "engineering", ParentID: &parent, Visibility: hierarchy.VisibilityPrivate, SSOLicensed: true}
	project := &hierarchy.Project{ID: 13, Name: "api", GroupID: 42, Visibility: hierarchy.VisibilityPrivate}
	provider := &sso.Provider{ID: 1, GroupID: 7, Enforced: true, Enabled: true}

	policy := newFakePolicy()
	policy.addGroup(root, nil)
	policy.addGroup(sub, root)

	if modes == nil {
		modes = toggles.Static(false)
	}

	svc := NewService(policy, newFakeProviders(provider), modes, nil, nil)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{
		svc:      svc,
		policy:   policy,
		sessions: newFakeSessions(),
		root:     root,
		sub:      sub,
		project:  project,
		provider: provider,
		user:     &hierarchy.User{ID: 100, Username: "jdoe"},
		now:      now,
	}
}

func (f *fixture) liveRequest() RequestContext {
	uid := f.user.ID
	return RequestContext{Sessions: f.sessions, WebSessionUserID: &uid}
}

func TestAccessRestricted_EnforcedNoSession(t *testing.T) {
	f := newFixture(t, nil)

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_RecentSessionWithinTimeout(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-2 * time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_SessionOlderThanShortTimeout(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-2 * time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{SessionTimeout: time.Hour})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_ExpiredExactlyAtTimeout(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-DefaultSessionTimeout)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted, "the validity window is half-open at its expiry end")
}

func TestAccessRestricted_ActiveJustInsideWindow(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-DefaultSessionTimeout).Add(time.Nanosecond)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_IdPDeclaredExpiryTakesPrecedence(t *testing.T) {
	f := newFixture(t, toggles.Static(false, 7))
	// Sign-in far outside any rolling window, but the IdP granted a longer session
	signIn := f.now.Add(-48 * time.Hour)
	expiry := f.now.Add(time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn, expiry: &expiry}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_IdPDeclaredExpiryElapsed(t *testing.T) {
	f := newFixture(t, toggles.Static(false, 7))
	// Recent sign-in, but the IdP-declared expiry already passed
	signIn := f.now.Add(-time.Minute)
	expiry := f.now
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn, expiry: &expiry}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted, "expired at exactly the declared instant")
}

func TestAccessRestricted_IdPModeFallsBackWithoutDeclaredExpiry(t *testing.T) {
	f := newFixture(t, toggles.Static(false, 7))
	signIn := f.now.Add(-2 * time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_PublicResourceNonMember(t *testing.T) {
	f := newFixture(t, nil)
	f.root.Visibility = hierarchy.VisibilityPublic

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_PublicResourceMemberStillRestricted(t *testing.T) {
	f := newFixture(t, nil)
	f.root.Visibility = hierarchy.VisibilityPublic
	f.policy.members[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_OwnerBypass(t *testing.T) {
	f := newFixture(t, nil)
	f.policy.owners[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_SkipOwnerCheckDisablesEscapeHatch(t *testing.T) {
	f := newFixture(t, nil)
	f.policy.owners[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{SkipOwnerCheck: true})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_OwnerBypassOnlyForRootGroups(t *testing.T) {
	f := newFixture(t, nil)
	f.policy.owners[membership{f.user.ID, f.sub.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.sub, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted, "owning a subgroup does not bypass the root's policy")
}

func TestAccessRestricted_SubgroupDefersToRootProvider(t *testing.T) {
	f := newFixture(t, nil)

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.sub, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_ProjectResolvesViaGroup(t *testing.T) {
	f := newFixture(t, nil)

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.project, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_PublicProjectNonMember(t *testing.T) {
	f := newFixture(t, nil)
	f.project.Visibility = hierarchy.VisibilityPublic

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.project, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_NoProvider(t *testing.T) {
	f := newFixture(t, nil)
	lone := &hierarchy.Group{ID: 99, Name: "unmanaged", Visibility: hierarchy.VisibilityPrivate}
	f.policy.addGroup(lone, nil)

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, lone, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_NilUser(t *testing.T) {
	f := newFixture(t, nil)

	restricted, err := f.svc.AccessRestricted(context.Background(), nil, f.root, RequestContext{Sessions: f.sessions}, CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_BackgroundCheckSkipsEnforcement(t *testing.T) {
	f := newFixture(t, nil)

	// No live web session at all
	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, RequestContext{Sessions: f.sessions}, CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)

	// A live session owned by someone else
	other := int64(999)
	restricted, err = f.svc.AccessRestricted(context.Background(), f.user, f.root, RequestContext{Sessions: f.sessions, WebSessionUserID: &other}, CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_ReadAllCapabilitySkipsEnforcement(t *testing.T) {
	f := newFixture(t, nil)
	f.user.ReadAllResources = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_NotEnforcedWithoutSSOLink(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.Enforced = false

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_SSOLinkedUserEnforced(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.Enforced = false
	f.policy.ssoLinks[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestAccessRestricted_SSOLinkedButUnlicensed(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.Enforced = false
	f.root.SSOLicensed = false
	f.policy.ssoLinks[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_SSOLinkedButProviderDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.Enforced = false
	f.provider.Enabled = false
	f.policy.ssoLinks[membership{f.user.ID, f.root.ID}] = true

	restricted, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-2 * time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	first, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	second, err := f.svc.AccessRestricted(context.Background(), f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAccessRestricted_UpdateSessionRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateSession(ctx, f.sessions, 1, f.now, nil))

	restricted, err := f.svc.AccessRestricted(ctx, f.user, f.root, f.liveRequest(), CheckOptions{})
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestAccessRestricted_PanicsOnUnknownResource(t *testing.T) {
	f := newFixture(t, nil)

	assert.Panics(t, func() {
		_, _ = f.svc.AccessRestricted(context.Background(), f.user, nil, f.liveRequest(), CheckOptions{})
	})
}

func TestAccessRestrictedGroups_DeduplicatesRoots(t *testing.T) {
	f := newFixture(t, nil)
	parent := f.root.ID
	subB := &hierarchy.Group{ID: 43, Name: "design", ParentID: &parent, Visibility: hierarchy.VisibilityPrivate, SSOLicensed: true}
	f.policy.addGroup(subB, f.root)

	restricted, err := f.svc.AccessRestrictedGroups(context.Background(), []*hierarchy.Group{f.sub, subB}, f.user, f.liveRequest())
	require.NoError(t, err)
	require.Len(t, restricted, 1)
	assert.Equal(t, f.root.ID, restricted[0].ID, "returns the root, not the subgroups")
}

func TestAccessRestrictedGroups_SkipsRootsWithoutProviders(t *testing.T) {
	f := newFixture(t, nil)
	lone := &hierarchy.Group{ID: 99, Name: "unmanaged", Visibility: hierarchy.VisibilityPrivate}
	f.policy.addGroup(lone, nil)

	restricted, err := f.svc.AccessRestrictedGroups(context.Background(), []*hierarchy.Group{f.sub, lone}, f.user, f.liveRequest())
	require.NoError(t, err)
	require.Len(t, restricted, 1)
	assert.Equal(t, f.root.ID, restricted[0].ID)
}

func TestAccessRestrictedGroups_EmptyInput(t *testing.T) {
	f := newFixture(t, nil)

	restricted, err := f.svc.AccessRestrictedGroups(context.Background(), nil, f.user, f.liveRequest())
	require.NoError(t, err)
	assert.Empty(t, restricted)
}

func TestAccessRestrictedGroups_ActiveSessionUnblocksAllRoots(t *testing.T) {
	f := newFixture(t, nil)
	signIn := f.now.Add(-time.Hour)
	f.sessions.facts[1] = sessionFact{lastSignIn: &signIn}

	restricted, err := f.svc.AccessRestrictedGroups(context.Background(), []*hierarchy.Group{f.sub}, f.user, f.liveRequest())
	require.NoError(t, err)
	assert.Empty(t, restricted)
}
