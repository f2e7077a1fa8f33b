package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

type ConnectionRepo interface {
	AcceptedPartnerIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	repoLog := baseLog.With("repo", "ConnectionRepo")
	return &connectionRepo{db: db, log: repoLog}
}

// AcceptedPartnerIDs returns the ids of every user ACCEPTED-connected to the
// given user, checked in both relationship directions.
func (cr *connectionRepo) AcceptedPartnerIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []uuid.UUID
	if userID == uuid.Nil {
		return results, nil
	}

	var conns []*types.Connection
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.ConnectionStatusAccepted).
		Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Find(&conns).Error; err != nil {
		return nil, err
	}

	for _, conn := range conns {
		if conn.RequesterID == userID {
			results = append(results, conn.AddresseeID)
		} else {
			results = append(results, conn.RequesterID)
		}
	}
	return results, nil
}
