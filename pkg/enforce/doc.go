// Package enforce decides whether a user's current sign-in session satisfies
// the SSO policy mandated by a resource's root group.
//
// # Overview
//
// Enforcement always resolves to the root of the group tree: a subgroup or
// project never has its own provider. The decision pipeline is
//
//  1. Policy resolution: resource -> governing group -> root ancestor ->
//     provider. No provider means no policy applies.
//  2. Bypass rules: a public resource the user is not a member of, or a root
//     group the user owns (unless the caller disabled the owner escape
//     hatch), short-circuits to "not restricted".
//  3. Per-provider decision: anonymous checks, background checks outside the
//     user's own live web session, and read-all capability holders are never
//     restricted. Otherwise the provider must actually bind the user
//     (enforced flag, or SSO link + enabled + licensed), and the session
//     fact must still be within its validity window.
//
// Two expiry strategies exist, selected per group (pkg/toggles): a rolling
// window after the last sign-in (default 24h), or the absolute expiry the
// IdP declared at sign-in. Both treat the window as half-open: a session is
// expired at exactly its expiry instant.
//
// The engine is a pure decision surface over injected stores. It performs no
// I/O beyond one session-state read and the policy lookups, holds no locks
// across a decision, and never issues or revokes sessions itself.
//
// # Related Packages
//
//   - pkg/hierarchy: group tree and membership facts
//   - pkg/sso: provider configurations
//   - pkg/session: the Redis session-state accessor
//   - pkg/middleware: request gating built on this engine
package enforce
