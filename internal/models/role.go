package models

import "strings"

// Role is the authorization tier of a user. The set is closed: policy code
// switches over every value and denies anything else.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
	RoleClient       Role = "client"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleCollaborator, RoleClient}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleCollaborator, RoleClient:
		return r, true
	}
	return r, false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }
