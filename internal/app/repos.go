package app

import (
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/repos"
)

type Repos struct {
	User           repos.UserRepo
	Plan           repos.PlanRepo
	Recommendation repos.RecommendationRepo
	Connection     repos.ConnectionRepo
	ActivityLog    repos.ActivityLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		Plan:           repos.NewPlanRepo(db, log),
		Recommendation: repos.NewRecommendationRepo(db, log),
		Connection:     repos.NewConnectionRepo(db, log),
		ActivityLog:    repos.NewActivityLogRepo(db, log),
	}
}
