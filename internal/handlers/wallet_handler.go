package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/services"
	"tournament-ledger/pkg/common"
)

// GetWallet returns the caller's wallet, creating it on first access.
func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.Ledger.EnsureWallet(c.Request.Context(), actor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"balance":    wallet.Balance,
		"balancePkr": models.CoinsToPKR(wallet.Balance),
	}, "Wallet fetched"))
}

func (h *Handler) ListWalletTransactions(c *gin.Context) {
	res, err := h.Ledger.ListTransactions(c.Request.Context(), services.TransactionFilter{
		UserID: actor(c).UserID,
		Type:   models.TransactionType(c.Query("type")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RequestDeposit accepts either a JSON body with a proofRef or a multipart
// form carrying the proof image in the "proof" field.
func (h *Handler) RequestDeposit(c *gin.Context) {
	var req services.DepositRequestDTO

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		amount, err := strconv.ParseInt(c.PostForm("amountCoins"), 10, 64)
		if err != nil {
			badRequest(c, "amountCoins must be a number")
			return
		}
		req.AmountCoins = amount
		req.Method = c.PostForm("method")
		req.ProofRef = c.PostForm("proofRef")

		if file, err := c.FormFile("proof"); err == nil {
			if h.Proofs == nil {
				badRequest(c, "Proof uploads are not enabled, send a proofRef")
				return
			}
			f, err := file.Open()
			if err != nil {
				badRequest(c, "Unreadable proof file")
				return
			}
			defer f.Close()

			ref, err := h.Proofs.Save(c.Request.Context(), actor(c).UserID, file.Filename, file.Header.Get("Content-Type"), f)
			if err != nil {
				respondError(c, err)
				return
			}
			req.ProofRef = ref
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	trx, err := h.Deposits.RequestDeposit(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(trx, "Deposit submitted for review"))
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	var req services.WithdrawRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.Withdrawals.RequestWithdrawal(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(res, "Withdrawal submitted for review"))
}
