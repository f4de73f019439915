package sso

import "time"

// ExpiryMode selects how a session's expiry instant is computed
type ExpiryMode string

const (
	// ExpiryModeRolling expires a session a fixed timeout after its most
	// recent sign-in.
	ExpiryModeRolling ExpiryMode = "rolling"

	// ExpiryModeIdPDeclared honors the absolute expiry the identity provider
	// asserted at sign-in (SessionNotOnOrAfter), falling back to the rolling
	// rule when the assertion carried none.
	ExpiryModeIdPDeclared ExpiryMode = "idp_declared"
)

// Provider is one SSO configuration bound to exactly one root group.
// Providers are created and updated by administrative configuration and are
// read-only to the enforcement engine.
type Provider struct {
	ID      int64 `json:"id"`
	GroupID int64 `json:"group_id"`

	// Enforced mandates SSO for the group regardless of membership state
	Enforced bool `json:"enforced"`

	// Enabled gates whether the provider participates in enforcement at all
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProviderSessionExpiry reports the remaining lifetime of one provider's
// session. TimeRemaining is signed; negative means already expired.
type ProviderSessionExpiry struct {
	ProviderID    int64         `json:"provider_id"`
	TimeRemaining time.Duration `json:"time_remaining"`
}
