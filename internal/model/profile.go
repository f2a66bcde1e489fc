// internal/model/profile.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the local record of a person's mutable attributes. Its primary
// key is the identity directory's user ID, except for synthetic profiles
// (students and guardians with no backing account) which get a fresh UUID.
// Profiles are never deleted; historical referrals reference them.
type Profile struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	DisplayName         string    `gorm:"type:text;not null" json:"display_name"`
	HasCompletedProfile bool      `gorm:"not null;default:false" json:"has_completed_profile"`
	Phone               string    `gorm:"type:text" json:"phone"`
	AddressLine1        string    `gorm:"type:text" json:"address_line1"`
	AddressLine2        string    `gorm:"type:text" json:"address_line2"`
	City                string    `gorm:"type:text" json:"city"`
	State               string    `gorm:"type:text" json:"state"`
	PostalCode          string    `gorm:"type:text" json:"postal_code"`
	GradeLevel          *int      `json:"grade_level,omitempty"`
	StudentNumber       string    `gorm:"type:text" json:"student_number,omitempty"`
	IsActive            bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
