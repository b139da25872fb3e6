package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"scratch-card.backend/internal/interfaces/http/response"
	"scratch-card.backend/internal/usecases"
	"scratch-card.backend/pkg/utils"
)

type leaderboardService interface {
	Leaderboard(ctx context.Context, p utils.PaginationParams) (*usecases.LeaderboardPage, error)
	Profile(ctx context.Context, address string) (*usecases.Profile, error)
}

type LeaderboardHandler struct {
	service leaderboardService
}

func NewLeaderboardHandler(service *usecases.LeaderboardUsecase) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// GetLeaderboard returns one page of ranked wallets.
// GET /api/leaderboard?page=1&pageSize=5 (limit is accepted as an alias of pageSize)
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	page := utils.ParseQueryInt(c.Query("page"), 1)
	sizeRaw := c.Query("pageSize")
	if sizeRaw == "" {
		sizeRaw = c.Query("limit")
	}
	pageSize := utils.ParseQueryInt(sizeRaw, utils.DefaultPageSize)

	result, err := h.service.Leaderboard(c.Request.Context(), utils.PaginationParams{Page: page, PageSize: pageSize})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"leaderboard":   result.Leaderboard,
		"pagination":    result.Pagination,
		"platformStats": result.PlatformStats,
	})
}

// GetProfile returns the summary and latest records of one wallet.
// GET /api/profile/:address
func (h *LeaderboardHandler) GetProfile(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"summary":      profile.Summary,
		"transactions": profile.Transactions,
	})
}
