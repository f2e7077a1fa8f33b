package pinecone

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/habitlink/habitlink-backend/internal/logger"
)

type fakeClient struct {
	lastUpsert *UpsertRequest
	lastQuery  *QueryRequest
	queryResp  QueryResponse
}

func (f *fakeClient) DescribeIndex(_ context.Context, indexName string) (*IndexDescription, error) {
	return &IndexDescription{Name: indexName, Host: "resolved.example.pinecone.io"}, nil
}

func (f *fakeClient) UpsertVectors(_ context.Context, _ string, req UpsertRequest) (*UpsertResponse, error) {
	f.lastUpsert = &req
	return &UpsertResponse{UpsertedCount: int64(len(req.Vectors))}, nil
}

func (f *fakeClient) Query(_ context.Context, _ string, req QueryRequest) (*QueryResponse, error) {
	f.lastQuery = &req
	return &f.queryResp, nil
}

func newTestStore(t *testing.T) (VectorStore, *fakeClient) {
	t.Helper()
	t.Setenv("PINECONE_INDEX_NAME", "habitlink-plans")
	t.Setenv("PINECONE_INDEX_HOST", "idx.example.pinecone.io")
	t.Setenv("PINECONE_NAMESPACE_PREFIX", "")

	fc := &fakeClient{}
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	store, err := NewVectorStore(log, fc)
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	return store, fc
}

func TestUpsertPlanDuplicatesIDsIntoMetadata(t *testing.T) {
	store, fc := newTestStore(t)
	planID := uuid.New()
	userID := uuid.New()

	if err := store.UpsertPlan(context.Background(), planID, userID, []float32{0.1, 0.2}); err != nil {
		t.Fatalf("UpsertPlan: %v", err)
	}

	if fc.lastUpsert == nil || len(fc.lastUpsert.Vectors) != 1 {
		t.Fatalf("expected exactly one upserted vector")
	}
	v := fc.lastUpsert.Vectors[0]
	if v.ID != planID.String() {
		t.Fatalf("vector id = %q, want plan id", v.ID)
	}
	if v.Metadata["plan_id"] != planID.String() || v.Metadata["user_id"] != userID.String() {
		t.Fatalf("metadata = %v, want plan_id and user_id copies", v.Metadata)
	}
	if fc.lastUpsert.Namespace != "hl:plans" {
		t.Fatalf("namespace = %q, want hl:plans", fc.lastUpsert.Namespace)
	}
}

func TestUpsertPlanRejectsMissingInput(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.UpsertPlan(context.Background(), uuid.Nil, uuid.New(), []float32{0.1}); err == nil {
		t.Fatalf("expected error for nil plan id")
	}
	if err := store.UpsertPlan(context.Background(), uuid.New(), uuid.New(), nil); err == nil {
		t.Fatalf("expected error for empty embedding")
	}
}

func TestQueryNearestPlansFilter(t *testing.T) {
	store, fc := newTestStore(t)
	exclude := uuid.New()
	candidates := []uuid.UUID{uuid.New(), uuid.New()}

	if _, err := store.QueryNearestPlans(context.Background(), []float32{0.5}, 25, exclude, candidates); err != nil {
		t.Fatalf("QueryNearestPlans: %v", err)
	}

	if fc.lastQuery.TopK != 25 {
		t.Fatalf("topK = %d, want 25", fc.lastQuery.TopK)
	}
	if !fc.lastQuery.IncludeMetadata {
		t.Fatalf("query must request metadata for user id resolution")
	}

	ne, ok := fc.lastQuery.Filter["plan_id"].(map[string]any)
	if !ok || ne["$ne"] != exclude.String() {
		t.Fatalf("plan_id filter = %v, want $ne on the source plan", fc.lastQuery.Filter["plan_id"])
	}
	in, ok := fc.lastQuery.Filter["user_id"].(map[string]any)
	if !ok {
		t.Fatalf("user_id filter missing")
	}
	ids, ok := in["$in"].([]string)
	if !ok || len(ids) != 2 {
		t.Fatalf("user_id filter = %v, want $in with both candidates", in)
	}
}

func TestQueryNearestPlansEmptyFilterOmitted(t *testing.T) {
	store, fc := newTestStore(t)
	if _, err := store.QueryNearestPlans(context.Background(), []float32{0.5}, 10, uuid.Nil, nil); err != nil {
		t.Fatalf("QueryNearestPlans: %v", err)
	}
	if fc.lastQuery.Filter != nil {
		t.Fatalf("filter = %v, want nil when nothing to constrain", fc.lastQuery.Filter)
	}
}

func TestQueryNearestPlansConvertsScoresToDistances(t *testing.T) {
	store, fc := newTestStore(t)
	planID := uuid.New()
	userID := uuid.New()
	fc.queryResp = QueryResponse{Matches: []QueryMatch{
		{ID: planID.String(), Score: 0.92, Metadata: map[string]any{"user_id": userID.String()}},
		{ID: "not-a-uuid", Score: 0.99},
	}}

	got, err := store.QueryNearestPlans(context.Background(), []float32{0.5}, 10, uuid.Nil, nil)
	if err != nil {
		t.Fatalf("QueryNearestPlans: %v", err)
	}

	// Non-uuid hits are dropped, not fatal.
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].PlanID != planID || got[0].UserID != userID {
		t.Fatalf("match ids = %v/%v, want %v/%v", got[0].PlanID, got[0].UserID, planID, userID)
	}
	if math.Abs(got[0].Distance-0.08) > 1e-9 {
		t.Fatalf("distance = %v, want 1 - 0.92", got[0].Distance)
	}
}

func TestVectorStoreResolvesHostWhenUnset(t *testing.T) {
	t.Setenv("PINECONE_INDEX_NAME", "habitlink-plans")
	t.Setenv("PINECONE_INDEX_HOST", "")
	t.Setenv("PINECONE_NAMESPACE_PREFIX", "")

	fc := &fakeClient{}
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	store, err := NewVectorStore(log, fc)
	if err != nil {
		t.Fatalf("NewVectorStore: %v", err)
	}
	if err := store.UpsertPlan(context.Background(), uuid.New(), uuid.New(), []float32{0.1}); err != nil {
		t.Fatalf("UpsertPlan after host resolution: %v", err)
	}
}
