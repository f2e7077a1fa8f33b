package app

import (
	"github.com/gin-gonic/gin"

	"github.com/habitlink/habitlink-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:  middlewareset.Auth,
		MatchingHandler: handlerset.Matching,
		ServiceName:     cfg.ServiceName,
	})
}
