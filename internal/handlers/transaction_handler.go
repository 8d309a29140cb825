package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/services"
	"tournament-ledger/pkg/common"
)

func (h *Handler) ListTransactionsForReview(c *gin.Context) {
	res, err := h.Reviews.ListForReview(c.Request.Context(), actor(c), services.TransactionFilter{
		Type:   models.TransactionType(c.Query("type")),
		Status: models.TransactionStatus(c.Query("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReviewTransaction(c *gin.Context) {
	var req services.ReviewTransactionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.Reviews.ReviewTransaction(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(res.Transaction, res.Message))
}
