package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/clients/redis"
	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/repos"
	"github.com/habitlink/habitlink-backend/internal/scoring"
	"github.com/habitlink/habitlink-backend/internal/types"
)

// MatchingConfig is the immutable parameter set for one matching service
// instance. Tests construct their own; production loads it in app.LoadConfig.
type MatchingConfig struct {
	Weights               scoring.Weights
	MinScore              float64
	MaxSimilarPlans       int
	TopN                  int
	StalenessTTL          time.Duration
	OnboardingWindow      time.Duration
	EngagementWindow      time.Duration
	ActivityWindow        time.Duration
	InternalEmailPrefixes []string
	ComputeLockTTL        time.Duration
}

func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Weights:          scoring.DefaultWeights(),
		MinScore:         0.1,
		MaxSimilarPlans:  50,
		TopN:             20,
		StalenessTTL:     48 * time.Hour,
		OnboardingWindow: 30 * 24 * time.Hour,
		EngagementWindow: 30 * 24 * time.Hour,
		ActivityWindow:   15 * 24 * time.Hour,
		ComputeLockTTL:   30 * time.Second,
	}
}

// RecommendedUsers is the read-path payload: the stored rows plus the
// denormalized candidate users and their active plans.
type RecommendedUsers struct {
	Recommendations []*types.Recommendation `json:"recommendations"`
	Users           []*types.User           `json:"users"`
	Plans           []*types.Plan           `json:"plans"`
}

type MatchingService interface {
	// ComputeRecommendations replaces the requester's stored recommendation
	// set. When planID is non-nil only that plan is scored; otherwise all of
	// the requester's active plans are.
	ComputeRecommendations(ctx context.Context, requesterID uuid.UUID, planID *uuid.UUID) (map[uuid.UUID]scoring.Breakdown, error)
	// GetRecommendedUsers recomputes first when the stored set is stale,
	// then serves the top rows by score.
	GetRecommendedUsers(ctx context.Context, requesterID uuid.UUID) (*RecommendedUsers, error)
	MarkRecommendationsOutdated(ctx context.Context, userID uuid.UUID) error
	DeleteAllRecommendations(ctx context.Context, userID uuid.UUID) error
	// ActivityConsistency is the dormant count-based signal; it is not part
	// of the weighted blend.
	ActivityConsistency(ctx context.Context, userID uuid.UUID) (float64, error)
}

type matchingService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          MatchingConfig
	userRepo     repos.UserRepo
	planRepo     repos.PlanRepo
	recRepo      repos.RecommendationRepo
	activityRepo repos.ActivityLogRepo
	eligibility  EligibilityService
	planSim      PlanSimilarityService
	locker       redis.Locker
	recompute    singleflight.Group
}

func NewMatchingService(db *gorm.DB, log *logger.Logger, cfg MatchingConfig, userRepo repos.UserRepo, planRepo repos.PlanRepo, recRepo repos.RecommendationRepo, activityRepo repos.ActivityLogRepo, eligibility EligibilityService, planSim PlanSimilarityService, locker redis.Locker) MatchingService {
	serviceLog := log.With("service", "MatchingService")
	return &matchingService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		userRepo:     userRepo,
		planRepo:     planRepo,
		recRepo:      recRepo,
		activityRepo: activityRepo,
		eligibility:  eligibility,
		planSim:      planSim,
		locker:       locker,
	}
}

// recommendationMetadata records which plan produced a row and every
// sub-score and weight that went into it.
type recommendationMetadata struct {
	PlanID        string  `json:"planId"`
	PlanSimScore  float64 `json:"planSimScore"`
	GeoSimScore   float64 `json:"geoSimScore"`
	AgeSimScore   float64 `json:"ageSimScore"`
	PlanSimWeight float64 `json:"planSimWeight"`
	GeoSimWeight  float64 `json:"geoSimWeight"`
	AgeSimWeight  float64 `json:"ageSimWeight"`
	FinalScore    float64 `json:"finalScore"`
}

func (ms *matchingService) ComputeRecommendations(ctx context.Context, requesterID uuid.UUID, planID *uuid.UUID) (map[uuid.UUID]scoring.Breakdown, error) {
	ctx, span := otel.Tracer("matching").Start(ctx, "ComputeRecommendations")
	defer span.End()

	if ms.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, ms.cfg.ComputeLockTTL)
		release, err := ms.locker.Acquire(lockCtx, requesterID.String(), ms.cfg.ComputeLockTTL)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("acquire compute lock: %w", err)
		}
		defer release()
	}

	now := time.Now().UTC()

	requesters, err := ms.userRepo.GetByIDs(ctx, nil, []uuid.UUID{requesterID})
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	if len(requesters) == 0 || requesters[0] == nil {
		return nil, fmt.Errorf("requester does not exist")
	}
	requester := requesters[0]

	candidates, err := ms.eligibility.EligibleCandidates(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("eligibility filter: %w", err)
	}

	results := make(map[uuid.UUID]scoring.Breakdown)
	var rows []*types.Recommendation

	if len(candidates) > 0 {
		// Geo and age do not vary per plan; compute them once per candidate.
		geoScores := make(map[uuid.UUID]float64, len(candidates))
		ageScores := make(map[uuid.UUID]float64, len(candidates))
		candidateIDs := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			candidateIDs = append(candidateIDs, c.ID)
			if requester.TimeZone != "" && c.TimeZone != "" {
				geoScores[c.ID] = scoring.GeoSimilarity(requester.TimeZone, c.TimeZone)
			}
			if validAge(requester.Age) && validAge(c.Age) {
				ageScores[c.ID] = scoring.AgeSimilarity(*requester.Age, *c.Age)
			}
		}

		plans, err := ms.plansToScore(ctx, requester, planID, now)
		if err != nil {
			return nil, err
		}

		for _, plan := range plans {
			planSimByUser := ms.planSimilarityByUser(ctx, plan, candidateIDs)
			for _, c := range candidates {
				breakdown := scoring.Breakdown{
					PlanSimScore: planSimByUser[c.ID],
					GeoSimScore:  geoScores[c.ID],
					AgeSimScore:  ageScores[c.ID],
				}
				breakdown.FinalScore = scoring.Aggregate(ms.cfg.Weights, breakdown.PlanSimScore, breakdown.GeoSimScore, breakdown.AgeSimScore)
				if breakdown.FinalScore <= ms.cfg.MinScore {
					continue
				}

				metadata, err := json.Marshal(recommendationMetadata{
					PlanID:        plan.ID.String(),
					PlanSimScore:  breakdown.PlanSimScore,
					GeoSimScore:   breakdown.GeoSimScore,
					AgeSimScore:   breakdown.AgeSimScore,
					PlanSimWeight: ms.cfg.Weights.PlanSim,
					GeoSimWeight:  ms.cfg.Weights.GeoSim,
					AgeSimWeight:  ms.cfg.Weights.AgeSim,
					FinalScore:    breakdown.FinalScore,
				})
				if err != nil {
					return nil, fmt.Errorf("marshal recommendation metadata: %w", err)
				}

				rows = append(rows, &types.Recommendation{
					ID:                       uuid.New(),
					UserID:                   requesterID,
					RecommendationObjectType: types.RecommendationObjectTypeUser,
					RecommendationObjectID:   c.ID,
					Score:                    breakdown.FinalScore,
					Metadata:                 metadata,
				})

				// One row per qualifying plan is persisted; the returned
				// map keeps each candidate's best-scoring plan.
				if prev, ok := results[c.ID]; !ok || breakdown.FinalScore > prev.FinalScore {
					results[c.ID] = breakdown
				}
			}
		}
	}

	// Replace atomically: all sub-scores are already in hand, so the
	// delete, the inserts, and the bookkeeping stamp share one transaction
	// and a concurrent read never observes a half-written set.
	if err := ms.inTransaction(ctx, func(tx *gorm.DB) error {
		if err := ms.recRepo.DeleteByUserID(ctx, tx, requesterID); err != nil {
			return fmt.Errorf("delete prior recommendations: %w", err)
		}
		if _, err := ms.recRepo.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("insert recommendations: %w", err)
		}
		if err := ms.userRepo.StampRecommendationsCalculated(ctx, tx, requesterID, now); err != nil {
			return fmt.Errorf("stamp recommendations calculated: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("matching.candidates", len(candidates)),
		attribute.Int("matching.rows", len(rows)),
	)
	ms.log.Info("recommendations computed",
		"requester_id", requesterID,
		"candidates", len(candidates),
		"rows", len(rows),
	)
	return results, nil
}

// inTransaction runs fn inside a DB transaction when a shared handle is
// configured; repo fakes without one run fn directly.
func (ms *matchingService) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ms.db == nil {
		return fn(nil)
	}
	return ms.db.WithContext(ctx).Transaction(fn)
}

// plansToScore resolves the requester plans an orchestration run scores:
// the explicitly requested plan, or all of the requester's active plans.
func (ms *matchingService) plansToScore(ctx context.Context, requester *types.User, planID *uuid.UUID, now time.Time) ([]*types.Plan, error) {
	if planID == nil {
		plans, err := ms.planRepo.GetActiveByUserID(ctx, nil, requester.ID, now)
		if err != nil {
			return nil, fmt.Errorf("load requester plans: %w", err)
		}
		return plans, nil
	}

	plans, err := ms.planRepo.GetByIDs(ctx, nil, []uuid.UUID{*planID})
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if len(plans) == 0 || plans[0] == nil || plans[0].UserID != requester.ID {
		return nil, fmt.Errorf("plan does not exist")
	}
	return plans[:1], nil
}

// planSimilarityByUser maps candidate user id to compressed plan similarity
// for one requester plan. A failed retrieval degrades to zero similarity for
// everyone this plan would have scored; it never aborts the run. When a
// candidate surfaces through several of their own plans the highest
// similarity wins.
func (ms *matchingService) planSimilarityByUser(ctx context.Context, plan *types.Plan, candidateIDs []uuid.UUID) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64)
	matches, err := ms.planSim.SimilarPlans(ctx, plan, ms.cfg.MaxSimilarPlans, candidateIDs)
	if err != nil {
		ms.log.Warn("plan similarity retrieval failed, scoring plan with zero similarity",
			"plan_id", plan.ID,
			"error", err,
		)
		return out
	}
	for _, m := range matches {
		if m.Plan == nil {
			continue
		}
		if m.Similarity > out[m.Plan.UserID] {
			out[m.Plan.UserID] = m.Similarity
		}
	}
	return out
}

func (ms *matchingService) GetRecommendedUsers(ctx context.Context, requesterID uuid.UUID) (*RecommendedUsers, error) {
	ctx, span := otel.Tracer("matching").Start(ctx, "GetRecommendedUsers")
	defer span.End()

	users, err := ms.userRepo.GetByIDs(ctx, nil, []uuid.UUID{requesterID})
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}
	if len(users) == 0 || users[0] == nil {
		return nil, fmt.Errorf("requester does not exist")
	}
	requester := users[0]

	if ms.needsRecompute(requester, time.Now().UTC()) {
		// singleflight collapses overlapping stale reads for the same
		// requester into one computation.
		if _, err, _ := ms.recompute.Do(requesterID.String(), func() (interface{}, error) {
			return ms.ComputeRecommendations(ctx, requesterID, nil)
		}); err != nil {
			return nil, fmt.Errorf("recompute recommendations: %w", err)
		}
	}

	recs, err := ms.recRepo.GetTopByUserID(ctx, nil, requesterID, ms.cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}

	candidateIDs := make([]uuid.UUID, 0, len(recs))
	for _, r := range recs {
		if r.RecommendationObjectType == types.RecommendationObjectTypeUser {
			candidateIDs = append(candidateIDs, r.RecommendationObjectID)
		}
	}

	candidates, err := ms.userRepo.GetByIDs(ctx, nil, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load recommended users: %w", err)
	}
	// Internal accounts are filtered at eligibility time already; keep the
	// read path clean even against rows computed under an older deny-list.
	visible := make([]*types.User, 0, len(candidates))
	visibleIDs := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		if ms.isInternalEmail(c.Email) {
			continue
		}
		visible = append(visible, c)
		visibleIDs = append(visibleIDs, c.ID)
	}

	plans, err := ms.planRepo.GetActiveByUserIDs(ctx, nil, visibleIDs, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load recommended users' plans: %w", err)
	}

	return &RecommendedUsers{
		Recommendations: recs,
		Users:           visible,
		Plans:           plans,
	}, nil
}

// needsRecompute implements the staleness gate: outdated flag set, never
// calculated, or calculated longer than the TTL ago.
func (ms *matchingService) needsRecompute(u *types.User, now time.Time) bool {
	if u.RecommendationsOutdated {
		return true
	}
	if u.RecommendationsLastCalculatedAt == nil {
		return true
	}
	return now.Sub(*u.RecommendationsLastCalculatedAt) > ms.cfg.StalenessTTL
}

func (ms *matchingService) MarkRecommendationsOutdated(ctx context.Context, userID uuid.UUID) error {
	return ms.userRepo.SetRecommendationsOutdated(ctx, nil, userID, true)
}

func (ms *matchingService) DeleteAllRecommendations(ctx context.Context, userID uuid.UUID) error {
	return ms.recRepo.DeleteByUserID(ctx, nil, userID)
}

func (ms *matchingService) ActivityConsistency(ctx context.Context, userID uuid.UUID) (float64, error) {
	since := time.Now().UTC().Add(-ms.cfg.ActivityWindow)
	count, err := ms.activityRepo.CountByUserSince(ctx, nil, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count activity entries: %w", err)
	}
	return scoring.ActivityConsistency(count), nil
}

func (ms *matchingService) isInternalEmail(email string) bool {
	for _, prefix := range ms.cfg.InternalEmailPrefixes {
		if prefix != "" && strings.HasPrefix(email, prefix) {
			return true
		}
	}
	return false
}

func validAge(age *int) bool {
	return age != nil && *age > 0
}
