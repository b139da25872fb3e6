package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"scratch-card.backend/internal/domain/entities"
	"scratch-card.backend/internal/interfaces/http/response"
	"scratch-card.backend/internal/usecases"
)

type gameService interface {
	State(ctx context.Context, player string) (*entities.GameState, error)
}

type GameHandler struct {
	service gameService
}

func NewGameHandler(service *usecases.GameUsecase) *GameHandler {
	return &GameHandler{service: service}
}

// GetState returns a contract snapshot, with player stats when ?player= is set.
// GET /api/game/state
func (h *GameHandler) GetState(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), c.Query("player"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": state})
}
