// Package sso holds the SSO provider model: one provider configuration per
// root group, with the enforced/enabled flags the enforcement engine reads.
//
// The SAML/OIDC handshake itself happens upstream; by the time this package
// is consulted the assertion has already been validated and reduced to a
// sign-in timestamp and an optional IdP-declared expiry (see pkg/session).
package sso
