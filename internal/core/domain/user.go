package domain

import "time"

// Titles of the two roles every store is seeded with.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// RoleKind is the business meaning of a role, independent of its storage identifier.
type RoleKind int

const (
	RoleKindOther RoleKind = iota
	RoleKindClient
	RoleKindAdmin
)

func (k RoleKind) String() string {
	switch k {
	case RoleKindClient:
		return RoleClient
	case RoleKindAdmin:
		return RoleAdmin
	default:
		return "other"
	}
}

// Role is a persisted role row.
type Role struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Roles holds the distinguished roles, resolved once from the store at startup.
type Roles struct {
	Client Role
	Admin  Role
}

// KindOf classifies a role identifier. Authorization always goes through here
// so that no handler compares raw identifiers.
func (r Roles) KindOf(roleID int64) RoleKind {
	switch roleID {
	case r.Admin.ID:
		return RoleKindAdmin
	case r.Client.ID:
		return RoleKindClient
	default:
		return RoleKindOther
	}
}

// User models an account. Role is populated by repositories that join it.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	RoleID       int64
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the verified caller attached to a request by the auth middleware.
type Identity struct {
	UserID   int64
	Username string
	Email    string
	Role     Role
	Kind     RoleKind
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Kind == RoleKindAdmin
}
