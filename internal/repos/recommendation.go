package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

type RecommendationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error)
	GetTopByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Recommendation, error)
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type recommendationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	repoLog := baseLog.With("repo", "RecommendationRepo")
	return &recommendationRepo{db: db, log: repoLog}
}

func (rr *recommendationRepo) Create(ctx context.Context, tx *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(recs) == 0 {
		return []*types.Recommendation{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (rr *recommendationRepo) GetTopByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Recommendation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.Recommendation
	if userID == uuid.Nil {
		return results, nil
	}

	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("score DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByUserID hard deletes: replaced recommendation sets are dead weight,
// not history.
func (rr *recommendationRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.Recommendation{}).Error
}
