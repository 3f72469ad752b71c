package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/community"
	"github.com/mayursapkal41/MindNest/internal/database"
	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/relay"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
)

const testSigningSecret = "test-signing-secret"

type stubSpeech struct {
	mu     sync.Mutex
	inputs []string
	speech relay.Speech
	err    error
}

func (s *stubSpeech) Synthesize(_ context.Context, ssml string) (relay.Speech, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, ssml)
	return s.speech, s.err
}

func (s *stubSpeech) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inputs...)
}

type stubGenerative struct {
	mu    sync.Mutex
	texts []string
	reply string
	err   error
}

func (s *stubGenerative) Reply(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.reply, s.err
}

type testServer struct {
	handler    http.Handler
	issuer     *auth.TokenIssuer
	realtime   *RealtimeDispatcher
	speech     *stubSpeech
	generative *stubGenerative
}

func newTestServer(t *testing.T, configure ...func(*Dependencies)) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: dsn}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	idProvider := identifier.NewUUIDProvider()
	usersService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	realtime := NewRealtimeDispatcher()
	communityService, err := community.NewService(community.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Profiles:   usersService,
		Notifier:   realtime.Notifier(),
	})
	if err != nil {
		t.Fatalf("failed to build community service: %v", err)
	}
	challengeService, err := challenge.NewService(challenge.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build challenge service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{SigningSecret: []byte(testSigningSecret), TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}
	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{SigningSecret: []byte(testSigningSecret)})
	if err != nil {
		t.Fatalf("failed to build session validator: %v", err)
	}

	speech := &stubSpeech{speech: relay.Speech{AudioContent: "UklGRg=="}}
	generative := &stubGenerative{reply: "breathe slowly and remember as they win or learn"}
	deps := Dependencies{
		Users:      usersService,
		Community:  communityService,
		Challenge:  challengeService,
		Speech:     speech,
		Generative: generative,
		Tokens:     issuer,
		Sessions:   validator,
		Realtime:   realtime,
		Database:   db,
		Logger:     zap.NewNop(),
	}
	for _, apply := range configure {
		apply(&deps)
	}

	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return testServer{
		handler:    handler,
		issuer:     issuer,
		realtime:   realtime,
		speech:     speech,
		generative: generative,
	}
}

// do sends a JSON request (raw strings not starting with "{" go as text/plain) and returns the recorder. A non-empty token is sent as a bearer header.
func (s testServer) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if raw, ok := payload.(string); ok {
			body.WriteString(raw)
		} else if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &body)
	if raw, ok := payload.(string); ok && !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		request.Header.Set("Content-Type", "text/plain")
	} else if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

// signUp registers a member and returns the session token.
func (s testServer) signUp(t *testing.T, email, anonymousName string) string {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":          email,
		"password":       "calm-waters",
		"full_name":      "Test Member",
		"anonymous_name": anonymousName,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("unexpected signup status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response authResponsePayload
	decodeJSON(t, recorder, &response)
	if response.AccessToken == "" {
		t.Fatalf("expected access token in signup response")
	}
	return response.AccessToken
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}
