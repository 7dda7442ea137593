// Package entities declares the record types forms can edit. Each type is a
// plain gorm model; column constraints come from its gorm tags and display
// labels from its label tags.
package entities

import (
	"fmt"
	"time"

	"github.com/gltn/stdm/pkg/schema"
)

// Entity names used in form definitions.
const (
	NameParty       = "party"
	NameSpatialUnit = "spatial_unit"
)

// Party is a person holding or claiming rights over a spatial unit.
type Party struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FirstName   string     `gorm:"not null;size:64" json:"first_name"`
	LastName    string     `gorm:"not null;size:64" json:"last_name"`
	NationalID  string     `gorm:"unique;size:32" label:"National ID" json:"national_id"`
	Gender      string     `gorm:"size:16" json:"gender"`
	DateOfBirth *time.Time `label:"Date of Birth" json:"date_of_birth,omitempty"`
	Phone       string     `gorm:"size:32" json:"phone"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Party) TableName() string { return "parties" }

// SpatialUnit is a parcel or other land unit.
type SpatialUnit struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"unique;not null;size:32" json:"code"`
	Name         string     `gorm:"not null;size:128" json:"name"`
	LandUse      string     `gorm:"size:32" json:"land_use"`
	Area         float64    `label:"Area (sq m)" json:"area"`
	Floors       int64      `json:"floors"`
	Disputed     bool       `json:"disputed"`
	RegisteredOn *time.Time `label:"Registration Date" json:"registered_on,omitempty"`
	SurveyedAt   *time.Time `json:"surveyed_at,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (SpatialUnit) TableName() string { return "spatial_units" }

// Models returns one value of every entity type, for migrations.
func Models() []any {
	return []any{&Party{}, &SpatialUnit{}}
}

// Register adds every entity type to reg.
func Register(reg *schema.Registry) error {
	if _, err := reg.Register(NameParty, func() any { return &Party{} }); err != nil {
		return fmt.Errorf("register entities: %w", err)
	}
	if _, err := reg.Register(NameSpatialUnit, func() any { return &SpatialUnit{} }); err != nil {
		return fmt.Errorf("register entities: %w", err)
	}
	return nil
}
