package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/community"
	"github.com/mayursapkal41/MindNest/internal/games"
	"github.com/mayursapkal41/MindNest/internal/svcerr"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	reason string
}

var serviceErrorMappings = []errorMapping{
	{target: users.ErrInvalidEmail, status: http.StatusBadRequest, reason: "invalid_email"},
	{target: users.ErrInvalidPassword, status: http.StatusBadRequest, reason: "invalid_password"},
	{target: users.ErrPasswordsDiffer, status: http.StatusBadRequest, reason: "passwords_differ"},
	{target: users.ErrInvalidFullName, status: http.StatusBadRequest, reason: "invalid_full_name"},
	{target: users.ErrInvalidAnonymousName, status: http.StatusBadRequest, reason: "invalid_anonymous_name"},
	{target: users.ErrEmailRegistered, status: http.StatusConflict, reason: "email_registered"},
	{target: users.ErrInvalidCredentials, status: http.StatusUnauthorized, reason: "invalid_credentials"},
	{target: users.ErrProfileNotFound, status: http.StatusNotFound, reason: "profile_not_found"},

	{target: community.ErrUnknownCommunity, status: http.StatusNotFound, reason: "unknown_community"},
	{target: community.ErrMessageNotFound, status: http.StatusNotFound, reason: "message_not_found"},
	{target: community.ErrEmptyContent, status: http.StatusBadRequest, reason: "empty_content"},
	{target: community.ErrTooLong, status: http.StatusBadRequest, reason: "too_long"},
	{target: community.ErrInappropriateContent, status: http.StatusUnprocessableEntity, reason: "inappropriate_content"},
	{target: community.ErrCooldown, status: http.StatusTooManyRequests, reason: "cooldown"},

	{target: challenge.ErrUnknownTask, status: http.StatusNotFound, reason: "unknown_task"},
	{target: challenge.ErrDayLocked, status: http.StatusConflict, reason: "day_locked"},

	{target: games.ErrUnknownKind, status: http.StatusNotFound, reason: "unknown_game"},
	{target: games.ErrSessionNotFound, status: http.StatusNotFound, reason: "session_not_found"},
	{target: games.ErrUnsupportedAction, status: http.StatusBadRequest, reason: "unsupported_action"},
	{target: games.ErrBoardLocked, status: http.StatusConflict, reason: "board_locked"},
	{target: games.ErrUnknownCard, status: http.StatusBadRequest, reason: "unknown_card"},
	{target: games.ErrCardUnavailable, status: http.StatusConflict, reason: "card_unavailable"},
	{target: games.ErrStoreFull, status: http.StatusServiceUnavailable, reason: "games_busy"},
}

// respondError writes {"error", "code", "message"} for known service errors and a generic 500
// otherwise.
func (h *httpHandler) respondError(c *gin.Context, operation string, err error) {
	for _, mapping := range serviceErrorMappings {
		if !errors.Is(err, mapping.target) {
			continue
		}
		body := gin.H{"error": mapping.reason, "message": userMessage(mapping.target)}
		if code, ok := svcerr.CodeOf(err); ok {
			body["code"] = code
		}
		c.AbortWithStatusJSON(mapping.status, body)
		return
	}

	h.logger.Error("request failed", zap.String("operation", operation), zap.Error(err))
	body := gin.H{"error": "internal_error"}
	if code, ok := svcerr.CodeOf(err); ok {
		body["code"] = code
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

func invalidRequest(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}

// userMessage drops the package prefix from a sentinel error.
func userMessage(err error) string {
	if _, message, found := strings.Cut(err.Error(), ": "); found {
		return message
	}
	return err.Error()
}
