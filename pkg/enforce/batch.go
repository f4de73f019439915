package enforce

import (
	"context"
	"sort"

	"github.com/platinummonkey/ssogate/pkg/session"
	"github.com/platinummonkey/ssogate/pkg/sso"
)

// SessionsTimeRemainingForExpiry computes, for every provider session in the
// given state snapshot, how long until that session must be re-authenticated.
// Negative durations mean the session already expired.
//
// Partial data is skipped rather than failing the sweep: companion expiry
// fields, zero sign-in timestamps, and fields that do not parse as provider
// IDs all drop out silently. Cost is linear in the snapshot size; callers
// sweeping many sessions should chunk.
func (s *Service) SessionsTimeRemainingForExpiry(ctx context.Context, state SessionState) ([]sso.ProviderSessionExpiry, error) {
	start := s.now()

	snapshot, err := state.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var results []sso.ProviderSessionExpiry

	for field, lastSignIn := range snapshot {
		providerID, ok := session.ParseProviderField(field)
		if !ok {
			// Companion expiry record or junk field, not a primary session
			continue
		}
		if lastSignIn.IsZero() {
			continue
		}

		idpMode, err := s.idpExpiryEnabled(ctx, providerID)
		if err != nil {
			return nil, err
		}

		expiresAt := lastSignIn.Add(DefaultSessionTimeout)
		if idpMode {
			if declared, ok := snapshot[session.ExpiryField(providerID)]; ok && !declared.IsZero() {
				expiresAt = declared
			}
		}

		results = append(results, sso.ProviderSessionExpiry{
			ProviderID:    providerID,
			TimeRemaining: expiresAt.Sub(now),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ProviderID < results[j].ProviderID
	})

	s.metrics.recordSweep(len(results), s.now().Sub(start))
	return results, nil
}

// idpExpiryEnabled resolves the provider's owning group and checks its
// expiry-mode toggle. Providers or groups that no longer resolve fall back
// to the rolling mode; storage errors propagate.
func (s *Service) idpExpiryEnabled(ctx context.Context, providerID int64) (bool, error) {
	provider, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return false, err
	}
	if provider == nil {
		return false, nil
	}
	group, err := s.policy.GetGroup(ctx, provider.GroupID)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, nil
	}
	return s.modes.ExpiryMode(group.ID) == sso.ExpiryModeIdPDeclared, nil
}
