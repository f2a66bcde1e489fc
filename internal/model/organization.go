// internal/model/organization.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary. Referral presets are opaque JSON
// consumed by the referral subsystem; this core only carries them.
type Organization struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name         string     `gorm:"type:text;not null" json:"name"`
	Slug         string     `gorm:"type:text;uniqueIndex;not null" json:"slug"`
	AddressLine1 string     `gorm:"type:text" json:"address_line1"`
	City         string     `gorm:"type:text" json:"city"`
	State        string     `gorm:"type:text" json:"state"`
	PostalCode   string     `gorm:"type:text" json:"postal_code"`
	Phone        string     `gorm:"type:text" json:"phone"`
	GradeMin     int        `json:"grade_min"`
	GradeMax     int        `json:"grade_max"`
	Presets      PresetJSON `gorm:"type:jsonb" json:"presets"`
	DistrictID   *uuid.UUID `gorm:"type:uuid" json:"district_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Memberships []Membership `gorm:"foreignKey:OrganizationID" json:"-"`
}

// PresetJSON is a custom type that implements the sql.Scanner and
// driver.Valuer interfaces for the opaque preset configuration blob.
type PresetJSON map[string]interface{}

// Scan implements the sql.Scanner interface
func (p *PresetJSON) Scan(value interface{}) error {
	if value == nil {
		*p = PresetJSON{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan, storing driver.Value type %T into type %T", value, p)
	}

	return json.Unmarshal(raw, p)
}

// Value implements the driver.Valuer interface
func (p PresetJSON) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	return json.Marshal(p)
}
