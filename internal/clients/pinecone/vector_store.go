package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/habitlink/habitlink-backend/internal/logger"
)

const plansNamespace = "plans"

// Match is one nearest-neighbor hit, in the distance convention the
// retriever expects: 0 is identical, larger is further apart.
type Match struct {
	PlanID   uuid.UUID
	UserID   uuid.UUID
	Distance float64
}

// VectorStore is the plan-embedding view of the similarity index.
type VectorStore interface {
	UpsertPlan(ctx context.Context, planID, userID uuid.UUID, embedding []float32) error
	// QueryNearestPlans returns up to topK plans nearest to the given
	// embedding, ascending by distance, excluding the source plan. When
	// candidateUserIDs is non-empty the hits are restricted to plans owned
	// by those users.
	QueryNearestPlans(ctx context.Context, embedding []float32, topK int, excludePlanID uuid.UUID, candidateUserIDs []uuid.UUID) ([]Match, error)
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	nsPrefix  string
}

func NewVectorStore(log *logger.Logger, pc Client) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))

	nsPrefix := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE_PREFIX"))
	if nsPrefix == "" {
		nsPrefix = "hl"
	}

	// If host missing, bootstrap via describe_index (fine for local/dev;
	// avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

func (s *vectorStore) UpsertPlan(ctx context.Context, planID, userID uuid.UUID, embedding []float32) error {
	if planID == uuid.Nil || userID == uuid.Nil {
		return fmt.Errorf("planID and userID required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding required")
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.qualifyNamespace(plansNamespace),
		Vectors: []Vector{{
			ID:     planID.String(),
			Values: embedding,
			// plan_id is duplicated into metadata because the query
			// filter cannot match on the vector id itself.
			Metadata: map[string]any{
				"plan_id": planID.String(),
				"user_id": userID.String(),
			},
		}},
	})
	return err
}

func (s *vectorStore) QueryNearestPlans(ctx context.Context, embedding []float32, topK int, excludePlanID uuid.UUID, candidateUserIDs []uuid.UUID) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding required")
	}

	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.qualifyNamespace(plansNamespace),
		Vector:          embedding,
		TopK:            topK,
		Filter:          nearestPlansFilter(excludePlanID, candidateUserIDs),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		planID, err := uuid.Parse(strings.TrimSpace(m.ID))
		if err != nil {
			s.log.Warn("skipping vector hit with non-uuid id", "vector_id", m.ID)
			continue
		}
		var userID uuid.UUID
		if raw, ok := m.Metadata["user_id"].(string); ok {
			userID, _ = uuid.Parse(raw)
		}
		out = append(out, Match{
			PlanID: planID,
			UserID: userID,
			// The index is cosine-metric and reports similarity; the
			// retriever works in distances.
			Distance: 1.0 - m.Score,
		})
	}
	return out, nil
}

func nearestPlansFilter(excludePlanID uuid.UUID, candidateUserIDs []uuid.UUID) map[string]any {
	filter := map[string]any{}
	if excludePlanID != uuid.Nil {
		filter["plan_id"] = map[string]any{"$ne": excludePlanID.String()}
	}
	if len(candidateUserIDs) > 0 {
		ids := make([]string, 0, len(candidateUserIDs))
		for _, id := range candidateUserIDs {
			ids = append(ids, id.String())
		}
		filter["user_id"] = map[string]any{"$in": ids}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}
