// Package session is the session-state accessor: a Redis-backed record of
// when each SSO provider last signed a web session in, plus the optional
// absolute expiry the IdP asserted at that sign-in.
//
// Each web session owns one hash keyed by session ID. Primary fields map a
// provider ID to its last sign-in timestamp; a ":expires_at" companion field
// carries the IdP-declared expiry when one was supplied. Timestamps are
// stored as RFC3339Nano so subsecond precision survives the round trip.
package session
