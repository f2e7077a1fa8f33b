package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/habitlink/habitlink-backend/internal/types"
)

type eligibilityFixture struct {
	users    *fakeUserRepo
	plans    *fakePlanRepo
	conns    *fakeConnectionRepo
	activity *fakeActivityLogRepo
	svc      EligibilityService
}

func newEligibilityFixture(t *testing.T, cfg MatchingConfig, users ...*types.User) *eligibilityFixture {
	t.Helper()
	f := &eligibilityFixture{
		users:    newFakeUserRepo(users...),
		plans:    &fakePlanRepo{},
		conns:    newFakeConnectionRepo(),
		activity: newFakeActivityLogRepo(),
	}
	f.svc = NewEligibilityService(nil, newTestLogger(t), cfg, f.users, f.plans, f.conns, f.activity)
	return f
}

func eligibleIDs(t *testing.T, f *eligibilityFixture, requesterID uuid.UUID) map[uuid.UUID]bool {
	t.Helper()
	got, err := f.svc.EligibleCandidates(context.Background(), requesterID)
	if err != nil {
		t.Fatalf("EligibleCandidates: %v", err)
	}
	ids := make(map[uuid.UUID]bool, len(got))
	for _, u := range got {
		ids[u.ID] = true
	}
	return ids
}

func TestEligibleCandidatesExcludesRequesterAndNonSeekers(t *testing.T) {
	requester := seekerUser("req@example.com", "America/New_York", 30)
	seeker := seekerUser("seeker@example.com", "America/New_York", 30)
	bystander := seekerUser("bystander@example.com", "America/New_York", 30)
	bystander.LookingForAP = false

	f := newEligibilityFixture(t, DefaultMatchingConfig(), requester, seeker, bystander)
	f.plans.plans = []*types.Plan{
		activePlan(requester.ID),
		activePlan(seeker.ID),
		activePlan(bystander.ID),
	}

	ids := eligibleIDs(t, f, requester.ID)
	if ids[requester.ID] {
		t.Fatalf("requester recommended to themselves")
	}
	if ids[bystander.ID] {
		t.Fatalf("user not looking for a partner is in the pool")
	}
	if !ids[seeker.ID] {
		t.Fatalf("qualifying seeker missing from the pool")
	}
}

func TestEligibleCandidatesRequireActivePlan(t *testing.T) {
	requester := seekerUser("req@example.com", "America/New_York", 30)
	planless := seekerUser("planless@example.com", "America/New_York", 30)
	finished := seekerUser("finished@example.com", "America/New_York", 30)

	f := newEligibilityFixture(t, DefaultMatchingConfig(), requester, planless, finished)
	past := time.Now().UTC().Add(-24 * time.Hour)
	finishedPlan := activePlan(finished.ID)
	finishedPlan.FinishingDate = &past
	f.plans.plans = []*types.Plan{finishedPlan}

	ids := eligibleIDs(t, f, requester.ID)
	if ids[planless.ID] {
		t.Fatalf("seeker without any plan is in the pool")
	}
	if ids[finished.ID] {
		t.Fatalf("seeker whose only plan already finished is in the pool")
	}
}

func TestEligibleCandidatesExcludeAcceptedConnections(t *testing.T) {
	requester := seekerUser("req@example.com", "America/New_York", 30)
	outbound := seekerUser("outbound@example.com", "America/New_York", 30)
	inbound := seekerUser("inbound@example.com", "America/New_York", 30)

	f := newEligibilityFixture(t, DefaultMatchingConfig(), requester, outbound, inbound)
	f.plans.plans = []*types.Plan{activePlan(outbound.ID), activePlan(inbound.ID)}
	// Direction must not matter: requester initiated one, received the other.
	f.conns.connect(requester.ID, outbound.ID)
	f.conns.connect(inbound.ID, requester.ID)

	ids := eligibleIDs(t, f, requester.ID)
	if ids[outbound.ID] || ids[inbound.ID] {
		t.Fatalf("already-connected partner is in the pool")
	}
}

func TestEligibleCandidatesEngagementWindow(t *testing.T) {
	cfg := DefaultMatchingConfig()
	now := time.Now().UTC()

	requester := seekerUser("req@example.com", "America/New_York", 30)

	veteranActive := seekerUser("veteran-active@example.com", "America/New_York", 30)
	veteranActive.CreatedAt = now.Add(-90 * 24 * time.Hour)

	veteranIdle := seekerUser("veteran-idle@example.com", "America/New_York", 30)
	veteranIdle.CreatedAt = now.Add(-90 * 24 * time.Hour)

	newcomerIdle := seekerUser("newcomer@example.com", "America/New_York", 30)
	newcomerIdle.CreatedAt = now.Add(-2 * 24 * time.Hour)

	f := newEligibilityFixture(t, cfg, requester, veteranActive, veteranIdle, newcomerIdle)
	f.plans.plans = []*types.Plan{
		activePlan(veteranActive.ID),
		activePlan(veteranIdle.ID),
		activePlan(newcomerIdle.ID),
	}
	f.activity.lastSeen[veteranActive.ID] = now.Add(-24 * time.Hour)

	ids := eligibleIDs(t, f, requester.ID)
	if !ids[veteranActive.ID] {
		t.Fatalf("recently active veteran missing from the pool")
	}
	if ids[veteranIdle.ID] {
		t.Fatalf("idle veteran is in the pool")
	}
	if !ids[newcomerIdle.ID] {
		t.Fatalf("newcomer within the onboarding window missing from the pool")
	}
}

func TestEligibleCandidatesDenyListedEmails(t *testing.T) {
	cfg := DefaultMatchingConfig()
	cfg.InternalEmailPrefixes = []string{"qa+"}

	requester := seekerUser("req@example.com", "America/New_York", 30)
	internal := seekerUser("qa+synthetic@example.com", "America/New_York", 30)

	f := newEligibilityFixture(t, cfg, requester, internal)
	f.plans.plans = []*types.Plan{activePlan(internal.ID)}

	if ids := eligibleIDs(t, f, requester.ID); ids[internal.ID] {
		t.Fatalf("deny-listed internal account is in the pool")
	}
}
