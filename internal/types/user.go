package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is owned by the identity subsystem. The matching engine reads it and
// only ever writes the two recommendation bookkeeping fields.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	TimeZone     string    `gorm:"column:time_zone" json:"time_zone"`
	Age          *int      `gorm:"column:age" json:"age,omitempty"`
	Profile      string    `gorm:"column:profile" json:"profile"`
	LookingForAP bool      `gorm:"not null;default:false;column:looking_for_ap;index" json:"looking_for_ap"`

	RecommendationsOutdated         bool       `gorm:"not null;default:true;column:recommendations_outdated" json:"recommendations_outdated"`
	RecommendationsLastCalculatedAt *time.Time `gorm:"column:recommendations_last_calculated_at" json:"recommendations_last_calculated_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
