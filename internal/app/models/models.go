// Package models holds the domain types shared by repositories, services and controllers.
package models

import "strings"

// Role is the global role of a profile
type Role string

const (
	RoleMiembro Role = "Miembro"
	RoleStaff   Role = "Staff"
	RoleAdmin   Role = "Admin"
)

var roleRank = map[Role]int{
	RoleMiembro: 1,
	RoleStaff:   2,
	RoleAdmin:   3,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles rank below everything.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// ParseRole matches a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	for role := range roleRank {
		if strings.EqualFold(string(role), strings.TrimSpace(s)) {
			return role, true
		}
	}
	return "", false
}

// Roles returns all roles from lowest to highest
func Roles() []Role {
	return []Role{RoleMiembro, RoleStaff, RoleAdmin}
}
