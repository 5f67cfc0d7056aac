package model

import (
	"strings"
	"time"
)

// Role is the privilege tier assigned to an identity.  The three tiers are
// closed: admin outranks operator, operator outranks client.  Roles are
// stored as lowercase strings in the external profile table, so the zero
// value of a missing role is the empty string, which never matches any tier.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleClient   Role = "client"
)

// ParseRole normalizes a raw role string and reports whether it names one
// of the three known tiers.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleOperator:
		return RoleOperator, true
	case RoleClient:
		return RoleClient, true
	}
	return "", false
}

// rank maps each tier to its privilege level.  Unknown roles rank zero and
// satisfy nothing.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleOperator:
		return 2
	case RoleClient:
		return 1
	}
	return 0
}

// AtLeast reports whether r carries at least the privilege of min.  It lets
// the authorization middleware express "operator or admin" as
// AtLeast(RoleOperator) without enumerating tiers at every call site.
func (r Role) AtLeast(min Role) bool {
	return min.rank() > 0 && r.rank() >= min.rank()
}

// Identity mirrors a row of the external `user_profiles` table.  The record
// is owned by the identity provider: the ID is assigned there and never
// changes, and email is unique across all profiles.  The json tags match
// the provider's column names so rows can be decoded directly.
//
// Fields:
//  ID        – opaque identifier assigned by the provider (a UUID in practice).
//  Email     – unique email address.
//  FullName  – display name.
//  Role      – privilege tier (defaults to client at registration).
//  IsActive  – whether the account may pass active-gated checks.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
