package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubSessionValidator struct {
	claims      auth.SessionClaims
	validateErr error
}

func (s stubSessionValidator) ValidateRequest(*http.Request) (auth.SessionClaims, error) {
	return s.claims, s.validateErr
}

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/challenge", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		sessions: stubSessionValidator{validateErr: auth.ErrExpiredSessionToken},
		logger:   zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), auth.ErrExpiredSessionToken) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/challenge", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		sessions: stubSessionValidator{validateErr: errors.New("signature mismatch")},
		logger:   zap.New(core),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entries[0].Level)
	}
}

func TestAuthorizeRequestStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/challenge", http.NoBody)

	handler := &httpHandler{
		sessions: stubSessionValidator{claims: auth.SessionClaims{UserID: "user-7", AnonymousName: "Quiet Owl"}},
		logger:   zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected request to continue")
	}
	if ctx.GetString(userIDContextKey) != "user-7" || ctx.GetString(anonymousNameContextKey) != "Quiet Owl" {
		t.Fatalf("unexpected context values %q %q", ctx.GetString(userIDContextKey), ctx.GetString(anonymousNameContextKey))
	}
}

func TestSignUpSignInAndProfile(t *testing.T) {
	server := newTestServer(t)

	signup := server.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":           "Member@Example.com",
		"password":        "calm-waters",
		"repeat_password": "calm-waters",
		"full_name":       "Test Member",
		"anonymous_name":  "Quiet Owl",
	})
	if signup.Code != http.StatusCreated {
		t.Fatalf("unexpected signup status %d: %s", signup.Code, signup.Body.String())
	}
	var signupResponse authResponsePayload
	decodeJSON(t, signup, &signupResponse)
	if signupResponse.TokenType != "Bearer" || signupResponse.ExpiresIn != 3600 {
		t.Fatalf("unexpected token metadata %#v", signupResponse)
	}
	if signupResponse.Profile.AnonymousName != "Quiet Owl" {
		t.Fatalf("unexpected profile %#v", signupResponse.Profile)
	}
	if cookie := signup.Header().Get("Set-Cookie"); !strings.Contains(cookie, auth.DefaultCookieName+"=") || !strings.Contains(cookie, "HttpOnly") {
		t.Fatalf("expected http-only session cookie, got %q", cookie)
	}

	duplicate := server.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":          "member@example.com",
		"password":       "calm-waters",
		"full_name":      "Other Member",
		"anonymous_name": "Loud Owl",
	})
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected conflict for duplicate email, got %d", duplicate.Code)
	}
	var duplicateBody map[string]string
	decodeJSON(t, duplicate, &duplicateBody)
	if duplicateBody["error"] != "email_registered" || duplicateBody["code"] != "users.sign_up.email_registered" {
		t.Fatalf("unexpected duplicate body %#v", duplicateBody)
	}

	badLogin := server.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "member@example.com", "password": "wrong-password"})
	if badLogin.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for wrong password, got %d", badLogin.Code)
	}

	login := server.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "MEMBER@example.com", "password": "calm-waters"})
	if login.Code != http.StatusOK {
		t.Fatalf("unexpected login status %d: %s", login.Code, login.Body.String())
	}
	var loginResponse authResponsePayload
	decodeJSON(t, login, &loginResponse)

	profile := server.do(t, http.MethodGet, "/auth/profile", loginResponse.AccessToken, nil)
	if profile.Code != http.StatusOK {
		t.Fatalf("unexpected profile status %d", profile.Code)
	}
	var stored users.Profile
	decodeJSON(t, profile, &stored)
	if stored.UserID != signupResponse.Profile.UserID || stored.FullName != "Test Member" {
		t.Fatalf("unexpected stored profile %#v", stored)
	}

	if unauthorized := server.do(t, http.MethodGet, "/auth/profile", "", nil); unauthorized.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized without token, got %d", unauthorized.Code)
	}
}

func TestSignUpValidationErrors(t *testing.T) {
	server := newTestServer(t)

	testCases := map[string]struct {
		payload map[string]string
		reason  string
	}{
		"bad-email":        {payload: map[string]string{"email": "nope", "password": "calm-waters", "full_name": "Test Member", "anonymous_name": "Owl"}, reason: "invalid_email"},
		"short-password":   {payload: map[string]string{"email": "a@b.co", "password": "123", "full_name": "Test Member", "anonymous_name": "Owl"}, reason: "invalid_password"},
		"passwords-differ": {payload: map[string]string{"email": "a@b.co", "password": "calm-waters", "repeat_password": "calm-water", "full_name": "Test Member", "anonymous_name": "Owl"}, reason: "passwords_differ"},
		"short-name":       {payload: map[string]string{"email": "a@b.co", "password": "calm-waters", "full_name": "T", "anonymous_name": "Owl"}, reason: "invalid_full_name"},
	}
	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			recorder := server.do(t, http.MethodPost, "/auth/signup", "", testCase.payload)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected bad request, got %d", recorder.Code)
			}
			var body map[string]string
			decodeJSON(t, recorder, &body)
			if body["error"] != testCase.reason {
				t.Fatalf("expected reason %q, got %#v", testCase.reason, body)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)
	recorder := server.do(t, http.MethodGet, "/healthz", "", nil)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", recorder.Code, recorder.Body.String())
	}
}
