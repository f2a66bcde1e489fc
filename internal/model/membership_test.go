package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/refera-hq/refera/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestInitialStatusDerivation(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()

	cases := []struct {
		role model.Role
		want model.MembershipStatus
	}{
		{model.RoleStudent, model.MembershipInactive},
		{model.RoleGuardian, model.MembershipInactive},
		{model.RoleStaff, model.MembershipActive},
		{model.RoleSecretary, model.MembershipActive},
		{model.RoleAdmin, model.MembershipActive},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			linked := model.NewMembership(orgID, userID, tc.role)
			assert.Equal(t, tc.want, linked.Status)
			assert.False(t, linked.IsPending())

			pending := model.NewPendingMembership(orgID, "someone@example.com", tc.role)
			assert.Equal(t, tc.want, pending.Status)
			assert.True(t, pending.IsPending())
			assert.Equal(t, "someone@example.com", *pending.InviteEmail)
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []model.Role{model.RoleStudent, model.RoleGuardian, model.RoleStaff, model.RoleSecretary, model.RoleAdmin} {
		assert.True(t, role.Valid(), "%s", role)
	}
	assert.False(t, model.Role("wizard").Valid())
	assert.False(t, model.Role("").Valid())
}

func TestInvitationExpiry(t *testing.T) {
	invitation := model.NewInvitation(uuid.New(), "late@example.com", model.RoleStaff, nil, 7*24*time.Hour)

	assert.Equal(t, model.InvitationPending, invitation.Status)
	assert.False(t, invitation.IsExpired(time.Now().UTC()))
	assert.True(t, invitation.IsExpired(invitation.ExpiresAt.Add(time.Second)))
}
