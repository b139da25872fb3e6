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

type transactionService interface {
	Record(ctx context.Context, input *entities.TransactionInput) (*entities.TransactionRecord, error)
}

// TransactionHandler ingests scratch and claim records reported by clients.
type TransactionHandler struct {
	service transactionService
}

func NewTransactionHandler(service *usecases.TransactionUsecase) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// RecordTransaction upserts one record keyed by tx hash.
// POST /api/transactions
func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	var input entities.TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid JSON body"))
		return
	}

	if _, err := h.service.Record(c.Request.Context(), &input); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil)
}
