package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"scratch-card.backend/internal/domain/entities"
	domainerrors "scratch-card.backend/internal/domain/errors"
	"scratch-card.backend/internal/interfaces/http/response"
	"scratch-card.backend/internal/usecases"
)

type batchService interface {
	Run(ctx context.Context, req *entities.BatchRunRequest) (*entities.BatchRunResult, error)
}

// BatchHandler runs signed admin batch-scratch requests.
type BatchHandler struct {
	service batchService
}

func NewBatchHandler(service *usecases.BatchUsecase) *BatchHandler {
	return &BatchHandler{service: service}
}

// RunBatchScratch blocks until the run finishes. A partial result is only logged; the caller gets the error.
// The run is detached from the request so a client that disconnects does not strand funded wallets.
// POST /api/admin/batch-scratch
func (h *BatchHandler) RunBatchScratch(c *gin.Context) {
	var req entities.BatchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid JSON body"))
		return
	}

	result, err := h.service.Run(context.WithoutCancel(c.Request.Context()), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}
