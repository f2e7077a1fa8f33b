package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/habitlink/habitlink-backend/internal/clients/pinecone"
	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/repos"
	"github.com/habitlink/habitlink-backend/internal/scoring"
	"github.com/habitlink/habitlink-backend/internal/types"
)

// PlanMatch pairs a matched plan with its compressed similarity to the
// source plan.
type PlanMatch struct {
	Plan       *types.Plan
	Similarity float64
}

// PlanSimilarityService answers "which plans are semantically closest to
// this one" against the vector index.
type PlanSimilarityService interface {
	// SimilarPlans returns up to limit plans nearest to the given plan's
	// embedding, restricted to candidateUserIDs when non-empty. A plan with
	// no embedding yet yields an empty result, not an error; embeddings are
	// computed asynchronously elsewhere.
	SimilarPlans(ctx context.Context, plan *types.Plan, limit int, candidateUserIDs []uuid.UUID) ([]PlanMatch, error)
	// IndexPlan pushes the plan's stored embedding into the vector index.
	IndexPlan(ctx context.Context, planID uuid.UUID) error
}

type planSimilarityService struct {
	log      *logger.Logger
	planRepo repos.PlanRepo
	vectors  pinecone.VectorStore
}

const defaultSimilarPlanLimit = 50

func NewPlanSimilarityService(log *logger.Logger, planRepo repos.PlanRepo, vectors pinecone.VectorStore) PlanSimilarityService {
	serviceLog := log.With("service", "PlanSimilarityService")
	return &planSimilarityService{
		log:      serviceLog,
		planRepo: planRepo,
		vectors:  vectors,
	}
}

func (ps *planSimilarityService) SimilarPlans(ctx context.Context, plan *types.Plan, limit int, candidateUserIDs []uuid.UUID) ([]PlanMatch, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan required")
	}
	if limit <= 0 {
		limit = defaultSimilarPlanLimit
	}

	embedding, err := embeddingVector(plan)
	if err != nil {
		return nil, fmt.Errorf("decode plan embedding: %w", err)
	}
	if len(embedding) == 0 {
		ps.log.Info("plan has no embedding yet, skipping similarity retrieval", "plan_id", plan.ID)
		return nil, nil
	}
	if ps.vectors == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}

	hits, err := ps.vectors.QueryNearestPlans(ctx, embedding, limit, plan.ID, candidateUserIDs)
	if err != nil {
		return nil, fmt.Errorf("vector index query: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	planIDs := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		planIDs = append(planIDs, hit.PlanID)
	}
	matched, err := ps.planRepo.GetByIDs(ctx, nil, planIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve matched plans: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Plan, len(matched))
	for _, p := range matched {
		byID[p.ID] = p
	}

	// Hits arrive ascending by distance; keep that order.
	out := make([]PlanMatch, 0, len(hits))
	for _, hit := range hits {
		p, ok := byID[hit.PlanID]
		if !ok {
			// Index and relational store can lag each other.
			ps.log.Debug("vector hit has no plan row, skipping", "plan_id", hit.PlanID)
			continue
		}
		out = append(out, PlanMatch{
			Plan:       p,
			Similarity: scoring.CompressSimilarity(1.0 - hit.Distance),
		})
	}
	return out, nil
}

func (ps *planSimilarityService) IndexPlan(ctx context.Context, planID uuid.UUID) error {
	plans, err := ps.planRepo.GetByIDs(ctx, nil, []uuid.UUID{planID})
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if len(plans) == 0 || plans[0] == nil {
		return fmt.Errorf("plan does not exist")
	}
	plan := plans[0]

	embedding, err := embeddingVector(plan)
	if err != nil {
		return fmt.Errorf("decode plan embedding: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("plan has no embedding to index")
	}
	if ps.vectors == nil {
		return fmt.Errorf("vector store unavailable")
	}
	return ps.vectors.UpsertPlan(ctx, plan.ID, plan.UserID, embedding)
}

func embeddingVector(plan *types.Plan) ([]float32, error) {
	if len(plan.Embedding) == 0 {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal(plan.Embedding, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
