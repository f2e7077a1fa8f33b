package app

import (
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/clients/pinecone"
	"github.com/habitlink/habitlink-backend/internal/clients/redis"
	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/services"
)

type Services struct {
	Eligibility    services.EligibilityService
	PlanSimilarity services.PlanSimilarityService
	Matching       services.MatchingService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	// The vector store is optional at startup: without it, plan-similarity
	// retrieval fails per call and the orchestrator degrades to zero
	// semantic similarity rather than refusing to boot.
	var vectors pinecone.VectorStore
	if strings.TrimSpace(os.Getenv("PINECONE_API_KEY")) != "" {
		pc, err := pinecone.New(log, pinecone.Config{APIKey: os.Getenv("PINECONE_API_KEY")})
		if err != nil {
			log.Warn("Could not init Pinecone client", "error", err)
		} else {
			vectors, err = pinecone.NewVectorStore(log, pc)
			if err != nil {
				log.Warn("Could not init Pinecone vector store", "error", err)
			}
		}
	} else {
		log.Warn("PINECONE_API_KEY not set; plan similarity will degrade to zero")
	}

	// Same for the Redis compute lock: without it, concurrent computes for
	// one requester are only deduplicated in-process.
	var locker redis.Locker
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		l, err := redis.NewLocker(log)
		if err != nil {
			log.Warn("Could not init Redis locker", "error", err)
		} else {
			locker = l
		}
	} else {
		log.Warn("REDIS_ADDR not set; compute lock disabled")
	}

	eligibility := services.NewEligibilityService(db, log, cfg.Matching, reposet.User, reposet.Plan, reposet.Connection, reposet.ActivityLog)
	planSim := services.NewPlanSimilarityService(log, reposet.Plan, vectors)
	matching := services.NewMatchingService(db, log, cfg.Matching, reposet.User, reposet.Plan, reposet.Recommendation, reposet.ActivityLog, eligibility, planSim, locker)

	return Services{
		Eligibility:    eligibility,
		PlanSimilarity: planSim,
		Matching:       matching,
	}, nil
}
