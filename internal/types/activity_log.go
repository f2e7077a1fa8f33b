package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ActivityLog records a user action (check-in, plan progress, login). The
// matching engine reads it for the engagement-recency filter and the
// activity-consistency signal.
type ActivityLog struct {
	ID     uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Type   string         `gorm:"not null;column:type;index" json:"type"`
	Data   datatypes.JSON `gorm:"type:jsonb;column:data" json:"data,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }
