// Package toggles selects the session-expiry strategy per group: the rolling
// timeout default, or the IdP-declared absolute expiry when a group is opted
// in via the YAML toggle file.
package toggles
