package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/community"
)

type contentRequestPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleListCommunities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"communities": community.Catalog()})
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	messages, err := h.community.ListMessages(c.Request.Context(), c.Param("community_id"), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, "list_messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *httpHandler) handlePostMessage(c *gin.Context) {
	var request contentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}

	message, err := h.community.PostMessage(c.Request.Context(), c.Param("community_id"), c.GetString(userIDContextKey), request.Content)
	if err != nil {
		h.respondError(c, "post_message", err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *httpHandler) handleToggleLike(c *gin.Context) {
	state, err := h.community.ToggleLike(c.Request.Context(), c.Param("message_id"), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, "toggle_like", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *httpHandler) handlePostReply(c *gin.Context) {
	var request contentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}

	reply, err := h.community.PostReply(c.Request.Context(), c.Param("message_id"), c.GetString(userIDContextKey), request.Content)
	if err != nil {
		h.respondError(c, "post_reply", err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}
