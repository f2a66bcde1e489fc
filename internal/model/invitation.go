// internal/model/invitation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation is the audit record of one invitation attempt. Resends update
// the row; a re-invite after cancellation creates a new one. Expiry is only
// checked opportunistically on resend, never swept.
type Invitation struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Email          string           `gorm:"type:citext;not null;index" json:"email"`
	Role           Role             `gorm:"type:membership_role;not null" json:"role"`
	InvitedByID    *uuid.UUID       `gorm:"type:uuid" json:"invited_by_id,omitempty"`
	Status         InvitationStatus `gorm:"type:invitation_status;not null;default:'pending'" json:"status"`
	SentAt         time.Time        `json:"sent_at"`
	AcceptedAt     *time.Time       `json:"accepted_at,omitempty"`
	ExpiresAt      time.Time        `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

// IsExpired determines whether the invitation has passed its expiry.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// NewInvitation builds a pending invitation expiring after the given window.
func NewInvitation(orgID uuid.UUID, email string, role Role, invitedBy *uuid.UUID, expiryWindow time.Duration) *Invitation {
	now := time.Now().UTC()
	return &Invitation{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		InvitedByID:    invitedBy,
		Status:         InvitationPending,
		SentAt:         now,
		ExpiresAt:      now.Add(expiryWindow),
	}
}
