package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/bowl"
)

const (
	defaultDroneSeconds = 8
	maxDroneSeconds     = 60
	maxGesturePoints    = 10000
	wavContentType      = "audio/wav"
)

var tapToneWAV = sync.OnceValue(func() []byte {
	return bowl.EncodeWAV(bowl.TapTone(bowl.DefaultSampleRate), bowl.DefaultSampleRate)
})

type gestureRequestPayload struct {
	Center bowl.Point   `json:"center"`
	Radius float64      `json:"radius"`
	Points []bowl.Point `json:"points"`
}

type tapRequestPayload struct {
	SessionID string `json:"session_id"`
}

func (h *httpHandler) handleTapTone(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, wavContentType, tapToneWAV())
}

func (h *httpHandler) handleDroneTone(c *gin.Context) {
	seconds := defaultDroneSeconds
	if raw := strings.TrimSpace(c.Query("seconds")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxDroneSeconds {
			invalidRequest(c)
			return
		}
		seconds = parsed
	}
	samples := bowl.DroneTone(bowl.DefaultSampleRate, float64(seconds))
	c.Data(http.StatusOK, wavContentType, bowl.EncodeWAV(samples, bowl.DefaultSampleRate))
}

func (h *httpHandler) handleGesture(c *gin.Context) {
	var request gestureRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Points) > maxGesturePoints {
		invalidRequest(c)
		return
	}
	c.JSON(http.StatusOK, bowl.Analyze(request.Center, request.Radius, request.Points))
}

func (h *httpHandler) handleBowlTap(c *gin.Context) {
	var request tapRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.SessionID) == "" {
		invalidRequest(c)
		return
	}
	c.JSON(http.StatusOK, h.activity.Tap(strings.TrimSpace(request.SessionID)))
}

func (h *httpHandler) handleBowlStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.activity.Status(c.Param("session_id")))
}
