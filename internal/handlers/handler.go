package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tournament-ledger/internal/middleware"
	"tournament-ledger/internal/services"
	"tournament-ledger/internal/storage"
	"tournament-ledger/pkg/common"
)

type Handler struct {
	Ledger       *services.LedgerService
	Tournaments  *services.TournamentService
	Registration *services.RegistrationService
	Winners      *services.WinnerService
	Deposits     *services.DepositService
	Withdrawals  *services.WithdrawalService
	Reviews      *services.ReviewService
	// Proofs is optional; without it deposits must carry a proofRef.
	Proofs storage.ProofStore
}

func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome To Tournament Ledger service"})
	})

	api := r.Group("/api", middleware.Auth(jwtSecret))
	api.GET("/wallet", h.GetWallet)
	api.GET("/wallet/transactions", h.ListWalletTransactions)
	api.POST("/deposits", h.RequestDeposit)
	api.POST("/withdrawals", h.RequestWithdrawal)
	api.GET("/tournaments", h.ListTournaments)
	api.GET("/tournaments/:id", h.GetTournament)
	api.POST("/tournaments/:id/join", h.JoinTournament)

	admin := api.Group("/admin", middleware.AdminOnly())
	admin.POST("/tournaments", h.CreateTournament)
	admin.POST("/tournaments/:id/open", h.OpenRegistration)
	admin.POST("/tournaments/:id/close", h.CloseRegistration)
	admin.POST("/tournaments/:id/start", h.StartTournament)
	admin.PUT("/tournaments/:id/lobby", h.SetLobbyCode)
	admin.POST("/tournaments/:id/winners", h.DeclareWinner)
	admin.GET("/transactions", h.ListTransactionsForReview)
	admin.POST("/transactions/review", h.ReviewTransaction)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var (
		validation   *services.ValidationError
		insufficient *services.InsufficientFundsError
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		forbidden    *services.ForbiddenError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		var cfgErr *services.ConfigurationError
		if !errors.As(err, &cfgErr) {
			message = "Internal server error"
		}
	}
	c.JSON(status, common.NewErrorResponse(message, nil, status))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, common.NewErrorResponse(message, nil, http.StatusBadRequest))
}

func actor(c *gin.Context) services.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
