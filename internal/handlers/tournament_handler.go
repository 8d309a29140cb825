package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/services"
	"tournament-ledger/pkg/common"
)

func (h *Handler) ListTournaments(c *gin.Context) {
	res, err := h.Tournaments.ListTournaments(c.Request.Context(),
		models.TournamentStatus(c.Query("status")),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 20),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetTournament(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tournament, err := h.Tournaments.GetTournament(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(tournament, "Tournament fetched"))
}

func (h *Handler) JoinTournament(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.JoinTournamentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.TournamentID = id

	res, err := h.Registration.JoinTournament(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(res, "Registered successfully"))
}

func (h *Handler) CreateTournament(c *gin.Context) {
	var req services.CreateTournamentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tournament, err := h.Tournaments.CreateTournament(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(tournament, "Tournament created"))
}

func (h *Handler) setRegistration(c *gin.Context, open bool) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tournament, err := h.Tournaments.SetRegistrationOpen(c.Request.Context(), actor(c), id, open)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(tournament, "Registration updated"))
}

func (h *Handler) OpenRegistration(c *gin.Context) {
	h.setRegistration(c, true)
}

func (h *Handler) CloseRegistration(c *gin.Context) {
	h.setRegistration(c, false)
}

func (h *Handler) StartTournament(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tournament, err := h.Tournaments.StartTournament(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(tournament, "Tournament started"))
}

type lobbyRequest struct {
	LobbyCode string `json:"lobbyCode" binding:"required"`
}

func (h *Handler) SetLobbyCode(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req lobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tournament, err := h.Tournaments.SetLobbyCode(c.Request.Context(), actor(c), id, req.LobbyCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(tournament, "Lobby code updated"))
}

func (h *Handler) DeclareWinner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.DeclareWinnerDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.TournamentID = id

	res, err := h.Winners.DeclareWinner(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(res, "Winner declared"))
}
