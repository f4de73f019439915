// Package hierarchy models the group tree, projects, and membership facts
// that SSO enforcement decisions are made against.
//
// # Overview
//
// Groups form a strict tree: every group has exactly one root ancestor
// (itself when it has no parent). Projects belong to exactly one group.
// Policy is always evaluated at the root of the tree, so the Store caches
// root-ancestor resolutions in an expirable LRU.
//
// # Related Packages
//
//   - pkg/sso: provider configurations owned by root groups
//   - pkg/enforce: the decision engine consuming these facts
package hierarchy
