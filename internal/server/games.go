package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/games"
)

type flipRequestPayload struct {
	CardID *int `json:"card_id"`
}

type guessRequestPayload struct {
	Answer string `json:"answer"`
}

type guessResponsePayload struct {
	games.GuessResult
	Session games.View `json:"session"`
}

type clickResponsePayload struct {
	Scored  bool       `json:"scored"`
	Session games.View `json:"session"`
}

func (h *httpHandler) handleCreateGame(c *gin.Context) {
	session, err := h.games.Create(c.Param("kind"))
	if err != nil {
		h.respondError(c, "create_game", err)
		return
	}
	c.JSON(http.StatusCreated, session.View())
}

func (h *httpHandler) handleGetGame(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (h *httpHandler) handleFlip(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	var request flipRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.CardID == nil {
		invalidRequest(c)
		return
	}
	view, err := session.Flip(*request.CardID)
	if err != nil {
		h.respondError(c, "flip", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleGuess(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	var request guessRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	result, view, err := session.Guess(request.Answer)
	if err != nil {
		h.respondError(c, "guess", err)
		return
	}
	c.JSON(http.StatusOK, guessResponsePayload{GuessResult: result, Session: view})
}

func (h *httpHandler) handleSkip(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	view, err := session.Skip()
	if err != nil {
		h.respondError(c, "skip", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleStart(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	view, err := session.Start()
	if err != nil {
		h.respondError(c, "start", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleClick(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	scored, view, err := session.Click()
	if err != nil {
		h.respondError(c, "click", err)
		return
	}
	c.JSON(http.StatusOK, clickResponsePayload{Scored: scored, Session: view})
}

func (h *httpHandler) handleReset(c *gin.Context) {
	session, ok := h.gameSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Reset())
}

func (h *httpHandler) gameSession(c *gin.Context) (*games.Session, bool) {
	session, err := h.games.Get(c.Param("session_id"))
	if err != nil {
		h.respondError(c, "game_session", err)
		return nil, false
	}
	return session, true
}
