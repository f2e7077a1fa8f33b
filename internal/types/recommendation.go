package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const RecommendationObjectTypeUser = "USER"

// Recommendation is the matching engine's own entity. Rows are created only
// by the orchestrator and replaced wholesale on every run for a requester;
// they are never mutated in place.
type Recommendation struct {
	ID                       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                   uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	RecommendationObjectType string         `gorm:"not null;column:recommendation_object_type" json:"recommendation_object_type"`
	RecommendationObjectID   uuid.UUID      `gorm:"type:uuid;not null;column:recommendation_object_id" json:"recommendation_object_id"`
	Score                    float64        `gorm:"not null;column:score" json:"score"`
	Metadata                 datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Recommendation) TableName() string { return "recommendation" }
