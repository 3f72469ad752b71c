package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
)

type signInRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponsePayload struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	TokenType   string        `json:"token_type"`
	Profile     users.Profile `json:"profile"`
}

func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request users.SignUpRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}

	profile, err := h.users.SignUp(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, "sign_up", err)
		return
	}
	h.issueSession(c, http.StatusCreated, profile)
}

func (h *httpHandler) handleSignIn(c *gin.Context) {
	var request signInRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}

	profile, err := h.users.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, "sign_in", err)
		return
	}
	h.issueSession(c, http.StatusOK, profile)
}

func (h *httpHandler) handleSignOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.DefaultCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleProfile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) issueSession(c *gin.Context, status int, profile users.Profile) {
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), auth.Subject{
		UserID:        profile.UserID,
		AnonymousName: profile.AnonymousName,
	})
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.DefaultCookieName, token, int(expiresIn), "/", "", c.Request.TLS != nil, true)
	c.JSON(status, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Profile:     profile,
	})
}
