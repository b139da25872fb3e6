package main

import (
	"github.com/gin-gonic/gin"
	"scratch-card.backend/internal/interfaces/http/handlers"
)

type routeDeps struct {
	transactionHandler *handlers.TransactionHandler
	leaderboardHandler *handlers.LeaderboardHandler
	gameHandler        *handlers.GameHandler
	batchHandler       *handlers.BatchHandler
}

func registerAPIRoutes(r *gin.Engine, d routeDeps) {
	api := r.Group("/api")
	{
		api.POST("/transactions", d.transactionHandler.RecordTransaction)
		api.GET("/leaderboard", d.leaderboardHandler.GetLeaderboard)
		api.GET("/profile/:address", d.leaderboardHandler.GetProfile)

		game := api.Group("/game")
		{
			game.GET("/state", d.gameHandler.GetState)
		}

		// Admin routes authorize each request by owner signature
		admin := api.Group("/admin")
		{
			admin.POST("/batch-scratch", d.batchHandler.RunBatchScratch)
		}
	}
}
