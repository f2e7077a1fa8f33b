package app

import (
	"github.com/habitlink/habitlink-backend/internal/handlers"
	"github.com/habitlink/habitlink-backend/internal/logger"
)

type Handlers struct {
	Matching *handlers.MatchingHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Matching: handlers.NewMatchingHandler(log, serviceset.Matching, serviceset.PlanSimilarity),
	}
}
