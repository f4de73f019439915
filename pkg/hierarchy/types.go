package hierarchy

// Visibility controls who can see a group or project
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// AccessLevel represents a member's access level within a group or project
type AccessLevel int

const (
	AccessGuest     AccessLevel = 10
	AccessReporter  AccessLevel = 20
	AccessDeveloper AccessLevel = 30
	AccessMaintainer AccessLevel = 40
	AccessOwner     AccessLevel = 50
)

// Group is a node in the namespace tree. Every group has exactly one root
// ancestor (itself when it has no parent).
type Group struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	Visibility  Visibility `json:"visibility"`
	SSOLicensed bool       `json:"sso_licensed"`
}

// IsRoot reports whether the group is the top of its tree
func (g *Group) IsRoot() bool {
	return g.ParentID == nil
}

// IsPublic reports whether the group is publicly visible
func (g *Group) IsPublic() bool {
	return g.Visibility == VisibilityPublic
}

// Project belongs to exactly one group for policy-resolution purposes
type Project struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	GroupID    int64      `json:"group_id"`
	Visibility Visibility `json:"visibility"`
}

// IsPublic reports whether the project is publicly visible
func (p *Project) IsPublic() bool {
	return p.Visibility == VisibilityPublic
}

// User represents a user account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`

	// ReadAllResources marks accounts with the elevated read-all capability
	// (admins, audit bots). These skip session enforcement outside their own
	// interactive sessions.
	ReadAllResources bool `json:"read_all_resources"`
}
