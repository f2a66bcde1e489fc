// internal/model/membership.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the privilege tier a person holds inside one organization.
type Role string

const (
	RoleStudent   Role = "student"
	RoleGuardian  Role = "guardian"
	RoleStaff     Role = "staff"
	RoleSecretary Role = "secretary"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleGuardian, RoleStaff, RoleSecretary, RoleAdmin:
		return true
	}
	return false
}

type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
)

// Membership links a person to an organization with a role and status.
// While the person is known only by invited email, UserID is nil and
// InviteEmail is set; linking flips that exactly once.
type Membership struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_org_user" json:"organization_id"`
	UserID         *uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_org_user" json:"user_id,omitempty"`
	InviteEmail    *string          `gorm:"type:citext;index" json:"invite_email,omitempty"`
	Role           Role             `gorm:"type:membership_role;not null" json:"role"`
	Status         MembershipStatus `gorm:"type:membership_status;not null;default:'active'" json:"status"`
	JoinedAt       time.Time        `json:"joined_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

// IsPending reports whether the membership still awaits identity linking.
func (m *Membership) IsPending() bool {
	return m.UserID == nil
}

// NewMembership builds a membership for a known identity. Status is derived
// from the role once, here: passive roles (student, guardian) start inactive,
// operational roles start active. The derivation is never re-applied after
// creation.
func NewMembership(orgID, userID uuid.UUID, role Role) *Membership {
	return &Membership{
		OrganizationID: orgID,
		UserID:         &userID,
		Role:           role,
		Status:         initialStatus(role),
		JoinedAt:       time.Now().UTC(),
	}
}

// NewPendingMembership builds a membership addressable only by the invited
// email, to be linked once the person creates an account.
func NewPendingMembership(orgID uuid.UUID, email string, role Role) *Membership {
	return &Membership{
		OrganizationID: orgID,
		InviteEmail:    &email,
		Role:           role,
		Status:         initialStatus(role),
		JoinedAt:       time.Now().UTC(),
	}
}

func initialStatus(role Role) MembershipStatus {
	switch role {
	case RoleStudent, RoleGuardian:
		return MembershipInactive
	default:
		return MembershipActive
	}
}
