package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

type UserRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
	ListPartnerSeekers(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID, denyEmailPrefixes []string) ([]*types.User, error)
	SetRecommendationsOutdated(ctx context.Context, tx *gorm.DB, userID uuid.UUID, outdated bool) error
	StampRecommendationsCalculated(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListPartnerSeekers returns every user flagged as looking for an
// accountability partner, minus the excluded id and any e-mail matching one
// of the operational deny-list prefixes. Further eligibility predicates
// (active plan, connection, engagement recency) are applied by the caller.
func (ur *userRepo) ListPartnerSeekers(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID, denyEmailPrefixes []string) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	q := transaction.WithContext(ctx).
		Where("looking_for_ap = ?", true)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	for _, prefix := range denyEmailPrefixes {
		if prefix == "" {
			continue
		}
		q = q.Where("email NOT LIKE ?", prefix+"%")
	}

	var results []*types.User
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) SetRecommendationsOutdated(ctx context.Context, tx *gorm.DB, userID uuid.UUID, outdated bool) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Update("recommendations_outdated", outdated).Error
}

func (ur *userRepo) StampRecommendationsCalculated(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"recommendations_outdated":           false,
			"recommendations_last_calculated_at": at,
		}).Error
}
