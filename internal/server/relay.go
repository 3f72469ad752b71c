package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/relay"
	"go.uber.org/zap"
)

const maxRelayBodyBytes = 1 << 20

type speechResponsePayload struct {
	AudioContent string `json:"audioContent"`
	Timepoints   []any  `json:"timepoints"`
}

type companionRequestPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleSpeech(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRelayBodyBytes))
	if err != nil {
		invalidRequest(c)
		return
	}

	ssml, err := relay.NormalizeSSML(body, c.ContentType())
	if err != nil {
		invalidRequest(c)
		return
	}
	if ssml == "" {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	speech, err := h.speech.Synthesize(c.Request.Context(), ssml)
	if err != nil {
		var upstream *relay.UpstreamError
		if errors.As(err, &upstream) {
			h.logger.Error("speech provider rejected request", zap.Int("status", upstream.StatusCode))
			c.Data(http.StatusInternalServerError, "application/json; charset=utf-8", upstream.Body)
			return
		}
		h.logger.Error("speech synthesis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "TTS failed"})
		return
	}

	c.JSON(http.StatusOK, speechResponsePayload{AudioContent: speech.AudioContent, Timepoints: []any{}})
}

func (h *httpHandler) handleCompanionReply(c *gin.Context) {
	var request companionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Text) == "" {
		invalidRequest(c)
		return
	}

	reply, err := h.generative.Reply(c.Request.Context(), request.Text)
	switch {
	case errors.Is(err, relay.ErrEmptyReply):
		c.JSON(http.StatusOK, gin.H{"reply": relay.FallbackReply})
	case err != nil:
		h.logger.Error("companion reply failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"reply": relay.FailureReply})
	default:
		c.JSON(http.StatusOK, gin.H{"reply": reply})
	}
}

func (h *httpHandler) handleCORSCheck(c *gin.Context) {
	c.String(http.StatusOK, "CORS CHECK ACTIVE")
}
