package auth

import "sort"

// UserRole is the user's role as issued by the backend
type UserRole = string

const (
	// RoleAdmin manages users, courses and chapters
	RoleAdmin UserRole = "admin"
	// RoleParent follows the progress of linked children
	RoleParent UserRole = "parent"
	// RoleStudent takes courses
	RoleStudent UserRole = "student"
)

// SignupRoles are the roles the backend accepts on registration
var SignupRoles = []UserRole{RoleParent, RoleStudent}

// RoleSet is an immutable, case-insensitive set of role names.
type RoleSet struct {
	roles map[string]struct{}
}

// NewRoleSet lower-cases every role. Empty names are ignored.
func NewRoleSet(roles ...string) RoleSet {
	set := RoleSet{roles: make(map[string]struct{}, len(roles))}
	for _, r := range roles {
		r = NormalizeRole(r)
		if r == "" {
			continue
		}
		set.roles[r] = struct{}{}
	}
	return set
}

// Contains reports membership of the lower-cased role.
func (s RoleSet) Contains(role string) bool {
	if role == "" {
		return false
	}
	_, ok := s.roles[NormalizeRole(role)]
	return ok
}

// Len returns the number of roles in the set
func (s RoleSet) Len() int {
	return len(s.roles)
}

// Roles returns the members sorted
func (s RoleSet) Roles() []string {
	out := make([]string, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// IsSignupRole reports whether a role can be picked on registration
func IsSignupRole(role string) bool {
	return NewRoleSet(SignupRoles...).Contains(role)
}

// LandingRoute is where a user lands after login, signup or OAuth.
func LandingRoute(role string) string {
	switch NormalizeRole(role) {
	case RoleParent:
		return RouteParentDashboard
	case RoleStudent:
		return RouteStudentDashboard
	case RoleAdmin:
		return RouteAdminDashboard
	default:
		return RouteDashboard
	}
}
