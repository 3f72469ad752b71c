package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mayursapkal41/MindNest/internal/community"
	"go.uber.org/zap"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketPongTimeout  = 60 * time.Second
)

type heartbeatPayload struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// socketFrame is the JSON frame written to WebSocket subscribers.
type socketFrame struct {
	Type string `json:"type"`
	community.Event
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowsAnyOrigin(allowedOrigins) {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
		return upgrader
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
	return upgrader
}

func (h *httpHandler) subscriberOpened() func() {
	if h.metrics == nil {
		return func() {}
	}
	h.metrics.SubscriberOpened()
	return h.metrics.SubscriberClosed
}

// handleCommunityStream serves change notifications for one room as server-sent events.
func (h *httpHandler) handleCommunityStream(c *gin.Context) {
	communityID := c.Param("community_id")
	if _, ok := community.Lookup(communityID); !ok {
		h.respondError(c, "stream", community.ErrUnknownCommunity)
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, communityID)
	defer cleanup()
	defer h.subscriberOpened()()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, message.Change)
			return true
		case now := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{
				Source:    realtimeSourceBackend,
				Timestamp: now.UTC().Format(time.RFC3339),
			})
			return true
		}
	})
}

// handleCommunitySocket serves the same notifications over a WebSocket.
func (h *httpHandler) handleCommunitySocket(c *gin.Context) {
	communityID := c.Param("community_id")
	if _, ok := community.Lookup(communityID); !ok {
		h.respondError(c, "socket", community.ErrUnknownCommunity)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, cleanup := h.realtime.Subscribe(ctx, communityID)
	defer cleanup()
	defer h.subscriberOpened()()

	// Clients only send control frames; a read error means the peer went away.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongTimeout))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(socketWriteTimeout))
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if err := conn.WriteJSON(socketFrame{
				Type:      message.EventType,
				Event:     message.Change,
				Timestamp: message.Timestamp.Format(time.RFC3339),
			}); err != nil {
				h.logger.Info("websocket write failed", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteTimeout)); err != nil {
				return
			}
		}
	}
}
