package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User

	stampedAt   map[uuid.UUID]time.Time
	outdatedSet map[uuid.UUID]bool

	getErr error
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	f := &fakeUserRepo{
		users:       make(map[uuid.UUID]*types.User),
		stampedAt:   make(map[uuid.UUID]time.Time),
		outdatedSet: make(map[uuid.UUID]bool),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []*types.User
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListPartnerSeekers(_ context.Context, _ *gorm.DB, excludeID uuid.UUID, denyEmailPrefixes []string) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.users {
		if !u.LookingForAP || u.ID == excludeID {
			continue
		}
		denied := false
		for _, prefix := range denyEmailPrefixes {
			if prefix != "" && len(u.Email) >= len(prefix) && u.Email[:len(prefix)] == prefix {
				denied = true
				break
			}
		}
		if denied {
			continue
		}
		out = append(out, u)
	}
	// Map iteration order is random; tests want deterministic pools.
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeUserRepo) SetRecommendationsOutdated(_ context.Context, _ *gorm.DB, userID uuid.UUID, outdated bool) error {
	f.outdatedSet[userID] = outdated
	if u, ok := f.users[userID]; ok {
		u.RecommendationsOutdated = outdated
	}
	return nil
}

func (f *fakeUserRepo) StampRecommendationsCalculated(_ context.Context, _ *gorm.DB, userID uuid.UUID, at time.Time) error {
	f.stampedAt[userID] = at
	if u, ok := f.users[userID]; ok {
		u.RecommendationsOutdated = false
		stamped := at
		u.RecommendationsLastCalculatedAt = &stamped
	}
	return nil
}

type fakePlanRepo struct {
	plans []*types.Plan
}

func (f *fakePlanRepo) GetByIDs(_ context.Context, _ *gorm.DB, planIDs []uuid.UUID) ([]*types.Plan, error) {
	var out []*types.Plan
	for _, id := range planIDs {
		for _, p := range f.plans {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakePlanRepo) GetActiveByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID, now time.Time) ([]*types.Plan, error) {
	var out []*types.Plan
	for _, p := range f.plans {
		if p.UserID == userID && p.IsActive(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) GetActiveByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID, now time.Time) ([]*types.Plan, error) {
	var out []*types.Plan
	for _, id := range userIDs {
		for _, p := range f.plans {
			if p.UserID == id && p.IsActive(now) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakePlanRepo) ActivePlanCounts(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64)
	for _, id := range userIDs {
		for _, p := range f.plans {
			if p.UserID == id && p.IsActive(now) {
				counts[id]++
			}
		}
	}
	return counts, nil
}

type fakeRecommendationRepo struct {
	rows []*types.Recommendation

	deleteCalls int
	createCalls int
	// replaceOrdered flips false if an insert ever lands before the delete.
	replaceOrdered bool
}

func newFakeRecommendationRepo() *fakeRecommendationRepo {
	return &fakeRecommendationRepo{replaceOrdered: true}
}

func (f *fakeRecommendationRepo) Create(_ context.Context, _ *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error) {
	f.createCalls++
	if f.deleteCalls < f.createCalls {
		f.replaceOrdered = false
	}
	f.rows = append(f.rows, recs...)
	return recs, nil
}

func (f *fakeRecommendationRepo) GetTopByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID, limit int) ([]*types.Recommendation, error) {
	var out []*types.Recommendation
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecommendationRepo) DeleteByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) error {
	f.deleteCalls++
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

type fakeConnectionRepo struct {
	accepted map[uuid.UUID][]uuid.UUID
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{accepted: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeConnectionRepo) connect(a, b uuid.UUID) {
	f.accepted[a] = append(f.accepted[a], b)
	f.accepted[b] = append(f.accepted[b], a)
}

func (f *fakeConnectionRepo) AcceptedPartnerIDs(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.accepted[userID], nil
}

type fakeActivityLogRepo struct {
	counts   map[uuid.UUID]int64
	lastSeen map[uuid.UUID]time.Time
}

func newFakeActivityLogRepo() *fakeActivityLogRepo {
	return &fakeActivityLogRepo{
		counts:   make(map[uuid.UUID]int64),
		lastSeen: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeActivityLogRepo) CountByUserSince(_ context.Context, _ *gorm.DB, userID uuid.UUID, _ time.Time) (int64, error) {
	return f.counts[userID], nil
}

func (f *fakeActivityLogRepo) ActiveUserIDsSince(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range userIDs {
		if at, ok := f.lastSeen[id]; ok && !at.Before(since) {
			out = append(out, id)
		}
	}
	return out, nil
}

// fakePlanSimilarity serves canned matches keyed by source plan id, with an
// optional per-plan error to exercise degraded retrieval.
type fakePlanSimilarity struct {
	matches map[uuid.UUID][]PlanMatch
	errs    map[uuid.UUID]error

	queried []uuid.UUID
}

func newFakePlanSimilarity() *fakePlanSimilarity {
	return &fakePlanSimilarity{
		matches: make(map[uuid.UUID][]PlanMatch),
		errs:    make(map[uuid.UUID]error),
	}
}

func (f *fakePlanSimilarity) SimilarPlans(_ context.Context, plan *types.Plan, _ int, _ []uuid.UUID) ([]PlanMatch, error) {
	f.queried = append(f.queried, plan.ID)
	if err := f.errs[plan.ID]; err != nil {
		return nil, err
	}
	return f.matches[plan.ID], nil
}

func (f *fakePlanSimilarity) IndexPlan(_ context.Context, _ uuid.UUID) error {
	return nil
}
