// Package middleware provides the HTTP middleware chain for the decision
// service.
//
// # Overview
//
// Three middlewares compose in order:
//
//  1. Identity: assigns a request ID, trusts the upstream X-User-ID and
//     X-Session-ID headers, loads the user, and stashes all three in the
//     request context (pkg/contextkeys).
//  2. SignInRateLimit: Redis-backed fixed-window limiter on sign-in
//     recording, keyed by session ID. Fails open on Redis errors.
//  3. GroupEnforcement: gates group-scoped routes on the enforcement
//     engine's decision, returning 403 when the caller's SSO session does
//     not satisfy the group's policy.
//
// Authentication itself happens upstream; these middlewares only consume
// its artifacts.
//
// # Related Packages
//
//   - pkg/enforce: the decision engine the enforcement middleware wraps
//   - pkg/contextkeys: the context keys populated here
package middleware
