package hierarchy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultRootCacheSize = 4096

// Store provides read access to the group tree, projects, and membership
// facts backed by Postgres. Root-ancestor lookups are cached because every
// enforcement decision starts with one.
type Store struct {
	db    *sql.DB
	roots *lru.LRU[int64, *Group]
}

// NewStore creates a hierarchy store. rootCacheTTL bounds how long a cached
// root-ancestor resolution may be served; zero disables expiry.
func NewStore(db *sql.DB, rootCacheTTL time.Duration) *Store {
	return &Store{
		db:    db,
		roots: lru.NewLRU[int64, *Group](defaultRootCacheSize, nil, rootCacheTTL),
	}
}

// GetGroup retrieves a group by ID
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	g := &Group{}
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, parent_id, visibility, sso_licensed
		FROM groups
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.Path, &parentID, &g.Visibility, &g.SSOLicensed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	if parentID.Valid {
		pid := parentID.Int64
		g.ParentID = &pid
	}
	return g, nil
}

// GetProject retrieves a project by ID
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	p := &Project{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, group_id, visibility
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.GroupID, &p.Visibility)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return p, nil
}

// RootAncestor resolves the top-most group of the given group's tree. The
// group itself is returned when it has no parent.
func (s *Store) RootAncestor(ctx context.Context, group *Group) (*Group, error) {
	if group == nil {
		return nil, nil
	}
	if group.IsRoot() {
		return group, nil
	}

	if root, ok := s.roots.Get(group.ID); ok {
		return root, nil
	}

	root := &Group{}
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, name, path, parent_id, visibility, sso_licensed
			FROM groups
			WHERE id = $1
			UNION ALL
			SELECT g.id, g.name, g.path, g.parent_id, g.visibility, g.sso_licensed
			FROM groups g
			JOIN ancestors a ON g.id = a.parent_id
		)
		SELECT id, name, path, parent_id, visibility, sso_licensed
		FROM ancestors
		WHERE parent_id IS NULL
	`, group.ID).Scan(&root.ID, &root.Name, &root.Path, &parentID, &root.Visibility, &root.SSOLicensed)
	if err == sql.ErrNoRows {
		// Orphaned subtree; treat the group as its own root
		return group, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root ancestor of group %d: %w", group.ID, err)
	}

	s.roots.Add(group.ID, root)
	return root, nil
}

// InvalidateRootCache drops the cached root-ancestor resolution for a group.
// Call after a group is moved in the tree.
func (s *Store) InvalidateRootCache(groupID int64) {
	s.roots.Remove(groupID)
}

// IsGroupMember reports whether the user is a member of the group
func (s *Store) IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return exists, nil
}

// IsProjectMember reports whether the user is a direct member of the project
func (s *Store) IsProjectMember(ctx context.Context, userID, projectID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)
	`, projectID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	return exists, nil
}

// IsGroupOwner reports whether the user holds the owner access level on the group
func (s *Store) IsGroupOwner(ctx context.Context, userID, groupID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM group_members
			WHERE group_id = $1 AND user_id = $2 AND access_level >= $3
		)
	`, groupID, userID, AccessOwner).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group ownership: %w", err)
	}
	return exists, nil
}

// HasSSOLink reports whether the user has an SSO identity linked to the group
func (s *Store) HasSSOLink(ctx context.Context, userID, groupID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM group_sso_identities WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check SSO identity link: %w", err)
	}
	return exists, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, read_all_resources
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.ReadAllResources)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}
