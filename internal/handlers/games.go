// internal/handlers/games.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/services"
)

// GamesHandler drives the cognitive games. A finished game records its answer on
// the session by itself.
type GamesHandler struct {
	log   *zap.Logger
	games *services.GameService
}

func NewGamesHandler(games *services.GameService, log *zap.Logger) *GamesHandler {
	return &GamesHandler{log: log, games: games}
}

func (h *GamesHandler) Start(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	status, err := h.games.Start(c.Request.Context(), id, c.Param("questionId"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, services.GameProgress{Status: status})
}

func (h *GamesHandler) Poll(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	p, err := h.games.Poll(c.Request.Context(), id, c.Param("questionId"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *GamesHandler) Event(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	var ev games.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, h.log, apperr.Validation("invalid game event: %v", err))
		return
	}

	p, err := h.games.Submit(c.Request.Context(), id, c.Param("questionId"), ev)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *GamesHandler) Cancel(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if !h.games.Cancel(id, c.Param("questionId")) {
		fail(c, h.log, apperr.NotFound("no running game for %s", c.Param("questionId")))
		return
	}
	c.Status(http.StatusNoContent)
}
