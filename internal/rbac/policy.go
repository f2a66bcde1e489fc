// internal/rbac/policy.go
package rbac

import (
	"github.com/refera-hq/refera/internal/model"
)

// Role hierarchy, ascending privilege. Unknown roles map to 0 so every
// comparison against a real role fails closed.
var hierarchy = map[model.Role]int{
	model.RoleStudent:   1,
	model.RoleGuardian:  2,
	model.RoleStaff:     3,
	model.RoleSecretary: 4,
	model.RoleAdmin:     5,
}

// HierarchyLevel returns the numeric privilege level of a role.
func HierarchyLevel(role model.Role) int {
	return hierarchy[role]
}

// IsActiveRole reports whether the role belongs to the operational class
// whose memberships start active.
func IsActiveRole(role model.Role) bool {
	switch role {
	case model.RoleStaff, model.RoleSecretary, model.RoleAdmin:
		return true
	}
	return false
}

// IsInactiveRole reports whether the role belongs to the passive class
// (people without login-driven workflows). Kept as its own predicate rather
// than the negation of IsActiveRole so the classification stays explicit.
func IsInactiveRole(role model.Role) bool {
	switch role {
	case model.RoleStudent, model.RoleGuardian:
		return true
	}
	return false
}

// CanManageUsers reports whether the role may invite, deactivate, or change
// other members.
func CanManageUsers(role model.Role) bool {
	return role == model.RoleAdmin
}

// CanCreateContent reports whether the role may author referrals and
// interventions.
func CanCreateContent(role model.Role) bool {
	switch role {
	case model.RoleAdmin, model.RoleSecretary, model.RoleStaff:
		return true
	}
	return false
}

// CanViewContent reports whether the role may read content. Every role can.
func CanViewContent(role model.Role) bool {
	return hierarchy[role] > 0
}

// RoleHasPermission reports whether actor may act on a target of the given
// role. Strictly greater: a role never has permission over an equal role.
func RoleHasPermission(actor, target model.Role) bool {
	return hierarchy[actor] > hierarchy[target]
}
