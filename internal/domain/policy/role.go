package policy

import (
	"fmt"
	"strings"
)

// Role identifies an actor's position in the approval hierarchy
type Role string

const (
	RoleClient     Role = "client"
	RoleConseiller Role = "conseiller"
	RoleRM         Role = "rm"
	RoleDCE        Role = "dce"
	RoleADG        Role = "adg"
	RoleDGA        Role = "dga"
	RoleAdmin      Role = "admin"
	RoleRisques    Role = "risques"
)

// hierarchy is ordered from least to most authority. risques sits outside it.
var hierarchy = []Role{
	RoleClient,
	RoleConseiller,
	RoleRM,
	RoleDCE,
	RoleADG,
	RoleDGA,
	RoleAdmin,
}

// AllRoles returns every known role, hierarchy first then risques
func AllRoles() []Role {
	return append(append([]Role(nil), hierarchy...), RoleRisques)
}

// Hierarchy returns the ordered role hierarchy
func Hierarchy() []Role {
	return append([]Role(nil), hierarchy...)
}

// ParseRole converts a raw value into a Role, rejecting unknown values
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	return r == RoleRisques || HierarchyIndex(r) >= 0
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsExecutive reports whether the role sits at the unlimited top of the hierarchy
func (r Role) IsExecutive() bool {
	return r == RoleDGA || r == RoleAdmin
}

// HierarchyIndex returns the position of role in the hierarchy, or -1 if it
// is unknown or outside the hierarchy.
func HierarchyIndex(r Role) int {
	for i, h := range hierarchy {
		if h == r {
			return i
		}
	}
	return -1
}
