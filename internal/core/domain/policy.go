package domain

import (
	"sort"
	"strings"
)

// RoleSet is the set of roles permitted on a route.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether role is a member of the set.
func (s RoleSet) Allows(role Role) bool {
	_, ok := s[role]
	return ok
}

func (s RoleSet) String() string {
	names := make([]string, 0, len(s))
	for r := range s {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Route permission matrix. Every guarded route picks exactly one of these.
var (
	PolicyAdminOnly        = NewRoleSet(RoleAdmin)
	PolicyStaff            = NewRoleSet(RoleAdmin, RoleEmployee)
	PolicyAnyAuthenticated = NewRoleSet(RoleAdmin, RoleEmployee, RoleUser)
)
