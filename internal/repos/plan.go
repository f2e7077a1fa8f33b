package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

type PlanRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) ([]*types.Plan, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*types.Plan, error)
	GetActiveByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, now time.Time) ([]*types.Plan, error)
	ActivePlanCounts(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error)
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	repoLog := baseLog.With("repo", "PlanRepo")
	return &planRepo{db: db, log: repoLog}
}

func (pr *planRepo) GetByIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Plan
	if len(planIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", planIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *planRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Plan
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("finishing_date IS NULL OR finishing_date > ?", now).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *planRepo) GetActiveByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, now time.Time) ([]*types.Plan, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Plan
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Where("finishing_date IS NULL OR finishing_date > ?", now).
		Order("user_id, position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *planRepo) ActivePlanCounts(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	counts := make(map[uuid.UUID]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		UserID uuid.UUID
		N      int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Plan{}).
		Select("user_id, COUNT(*) AS n").
		Where("user_id IN ?", userIDs).
		Where("finishing_date IS NULL OR finishing_date > ?", now).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.N
	}
	return counts, nil
}
