package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is a goal owned by exactly one user. The embedding column holds the
// goal text's vector as a JSON array; it is null until the embedding
// pipeline has processed the plan.
type Plan struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Goal          string         `gorm:"not null;column:goal" json:"goal"`
	Embedding     datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"-"`
	FinishingDate *time.Time     `gorm:"column:finishing_date" json:"finishing_date,omitempty"`
	Position      int            `gorm:"not null;default:0;column:position" json:"position"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Plan) TableName() string { return "plan" }

// IsActive reports whether the plan still counts for matching: not soft
// deleted and either open-ended or finishing in the future.
func (p *Plan) IsActive(now time.Time) bool {
	if p == nil || p.DeletedAt.Valid {
		return false
	}
	return p.FinishingDate == nil || p.FinishingDate.After(now)
}
