package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

type ActivityLogRepo interface {
	CountByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error)
	ActiveUserIDsSince(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, since time.Time) ([]uuid.UUID, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	repoLog := baseLog.With("repo", "ActivityLogRepo")
	return &activityLogRepo{db: db, log: repoLog}
}

func (ar *activityLogRepo) CountByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64
	if userID == uuid.Nil {
		return 0, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ActivityLog{}).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ActiveUserIDsSince narrows the given ids down to users with at least one
// activity entry at or after the cutoff.
func (ar *activityLogRepo) ActiveUserIDsSince(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []uuid.UUID
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ActivityLog{}).
		Distinct("user_id").
		Where("user_id IN ?", userIDs).
		Where("created_at >= ?", since).
		Pluck("user_id", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
