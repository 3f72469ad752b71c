package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleChallenge(c *gin.Context) {
	snapshot, err := h.challenge.Load(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, "load_challenge", err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *httpHandler) handleToggleTask(c *gin.Context) {
	result, err := h.challenge.ToggleTask(c.Request.Context(), c.GetString(userIDContextKey), c.Param("task_id"))
	if err != nil {
		h.respondError(c, "toggle_task", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
