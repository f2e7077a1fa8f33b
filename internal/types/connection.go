package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConnectionStatusPending  = "PENDING"
	ConnectionStatusAccepted = "ACCEPTED"
	ConnectionStatusRejected = "REJECTED"
)

// Connection is owned by the social subsystem; the matching engine consumes
// it read-only to keep already-connected pairs out of the candidate pool.
type Connection struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RequesterID uuid.UUID `gorm:"type:uuid;not null;index" json:"requester_id"`
	AddresseeID uuid.UUID `gorm:"type:uuid;not null;index" json:"addressee_id"`
	Status      string    `gorm:"not null;column:status;index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Connection) TableName() string { return "connection" }
