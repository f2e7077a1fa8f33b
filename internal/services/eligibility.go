package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/repos"
	"github.com/habitlink/habitlink-backend/internal/types"
)

// EligibilityService selects the pool of users structurally allowed to be
// recommended to a requester, before any similarity scoring.
type EligibilityService interface {
	EligibleCandidates(ctx context.Context, requesterID uuid.UUID) ([]*types.User, error)
}

type eligibilityService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          MatchingConfig
	userRepo     repos.UserRepo
	planRepo     repos.PlanRepo
	connRepo     repos.ConnectionRepo
	activityRepo repos.ActivityLogRepo
}

func NewEligibilityService(db *gorm.DB, log *logger.Logger, cfg MatchingConfig, userRepo repos.UserRepo, planRepo repos.PlanRepo, connRepo repos.ConnectionRepo, activityRepo repos.ActivityLogRepo) EligibilityService {
	serviceLog := log.With("service", "EligibilityService")
	return &eligibilityService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		userRepo:     userRepo,
		planRepo:     planRepo,
		connRepo:     connRepo,
		activityRepo: activityRepo,
	}
}

// EligibleCandidates returns every user who (1) is looking for an
// accountability partner and is not the requester, (2) is not a deny-listed
// internal account, (3) has at least one active plan, (4) is not already
// ACCEPTED-connected to the requester in either direction, and (5) either
// signed up within the onboarding grace window or has logged activity within
// the engagement window.
func (es *eligibilityService) EligibleCandidates(ctx context.Context, requesterID uuid.UUID) ([]*types.User, error) {
	now := time.Now().UTC()

	seekers, err := es.userRepo.ListPartnerSeekers(ctx, nil, requesterID, es.cfg.InternalEmailPrefixes)
	if err != nil {
		return nil, fmt.Errorf("list partner seekers: %w", err)
	}
	if len(seekers) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(seekers))
	for _, u := range seekers {
		ids = append(ids, u.ID)
	}

	planCounts, err := es.planRepo.ActivePlanCounts(ctx, nil, ids, now)
	if err != nil {
		return nil, fmt.Errorf("active plan counts: %w", err)
	}

	connectedIDs, err := es.connRepo.AcceptedPartnerIDs(ctx, nil, requesterID)
	if err != nil {
		return nil, fmt.Errorf("accepted partner ids: %w", err)
	}
	connected := make(map[uuid.UUID]struct{}, len(connectedIDs))
	for _, id := range connectedIDs {
		connected[id] = struct{}{}
	}

	engagementCutoff := now.Add(-es.cfg.EngagementWindow)
	activeIDs, err := es.activityRepo.ActiveUserIDsSince(ctx, nil, ids, engagementCutoff)
	if err != nil {
		return nil, fmt.Errorf("recently active user ids: %w", err)
	}
	recentlyActive := make(map[uuid.UUID]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		recentlyActive[id] = struct{}{}
	}

	onboardingCutoff := now.Add(-es.cfg.OnboardingWindow)
	out := make([]*types.User, 0, len(seekers))
	for _, u := range seekers {
		if planCounts[u.ID] == 0 {
			continue
		}
		if _, ok := connected[u.ID]; ok {
			continue
		}
		isNew := u.CreatedAt.After(onboardingCutoff)
		_, isActive := recentlyActive[u.ID]
		if !isNew && !isActive {
			continue
		}
		out = append(out, u)
	}

	es.log.Debug("eligibility pool computed",
		"requester_id", requesterID,
		"seekers", len(seekers),
		"eligible", len(out),
	)
	return out, nil
}
