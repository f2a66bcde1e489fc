// internal/rbac/guard.go
package rbac

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/domain"
	"github.com/refera-hq/refera/internal/model"
)

// RequireRoleAtLeast fails unless the membership is active and holds at least
// the threshold role.
func RequireRoleAtLeast(m *model.Membership, threshold model.Role) error {
	if m == nil {
		return domain.ErrForbidden
	}
	if m.Status != model.MembershipActive {
		return fmt.Errorf("%w: %v", domain.ErrForbidden, domain.ErrMembershipInactive)
	}
	if HierarchyLevel(m.Role) < HierarchyLevel(threshold) {
		return fmt.Errorf("%w: requires %s or above", domain.ErrForbidden, threshold)
	}
	return nil
}

// RequireOwnership enforces the ownership rule on authored resources: staff,
// the lowest active role, may only touch their own; every higher role
// bypasses the check. The caller must already have passed RequireRoleAtLeast
// for staff.
func RequireOwnership(m *model.Membership, authorID uuid.UUID) error {
	if err := RequireRoleAtLeast(m, model.RoleStaff); err != nil {
		return err
	}
	if m.Role != model.RoleStaff {
		return nil
	}
	if m.UserID == nil || *m.UserID != authorID {
		return fmt.Errorf("%w: %v", domain.ErrForbidden, domain.ErrOwnershipRequired)
	}
	return nil
}
