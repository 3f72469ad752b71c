package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/bowl"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/community"
	"github.com/mayursapkal41/MindNest/internal/games"
	"github.com/mayursapkal41/MindNest/internal/metrics"
	"github.com/mayursapkal41/MindNest/internal/relay"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	userIDContextKey        = "mindnest_user_id"
	anonymousNameContextKey = "mindnest_anonymous_name"

	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingCommunityService = errors.New("community service dependency required")
	errMissingChallengeService = errors.New("challenge service dependency required")
	errMissingTokenIssuer      = errors.New("token issuer dependency required")
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingSpeechClient     = errors.New("speech client dependency required")
	errMissingGenerativeClient = errors.New("generative client dependency required")
)

type SessionIssuer interface {
	IssueSessionToken(ctx context.Context, subject auth.Subject) (string, int64, error)
}

type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, ssml string) (relay.Speech, error)
}

type ReplyGenerator interface {
	Reply(ctx context.Context, text string) (string, error)
}

type Dependencies struct {
	Users      *users.Service
	Community  *community.Service
	Challenge  *challenge.Service
	Games      *games.Store
	Bowl       *bowl.ActivityTracker
	Speech     SpeechSynthesizer
	Generative ReplyGenerator
	Tokens     SessionIssuer
	Sessions   SessionValidator
	Realtime   *RealtimeDispatcher
	Metrics    *metrics.Metrics
	// Database is pinged by /healthz when set.
	Database *gorm.DB
	Logger   *zap.Logger

	AllowedOrigins []string
	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers are believed.
	// Empty trusts none, so the client address is the connection's remote address.
	TrustedProxies []string
	// RelayRateLimit caps /gtts and /gemini per client; zero disables the limit.
	RelayRateLimit    rate.Limit
	RelayRateBurst    int
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.Users == nil:
		return nil, errMissingUsersService
	case deps.Community == nil:
		return nil, errMissingCommunityService
	case deps.Challenge == nil:
		return nil, errMissingChallengeService
	case deps.Tokens == nil:
		return nil, errMissingTokenIssuer
	case deps.Sessions == nil:
		return nil, errMissingSessionValidator
	case deps.Speech == nil:
		return nil, errMissingSpeechClient
	case deps.Generative == nil:
		return nil, errMissingGenerativeClient
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	gameStore := deps.Games
	if gameStore == nil {
		gameStore = games.NewStore(games.StoreConfig{})
	}
	activity := deps.Bowl
	if activity == nil {
		activity = bowl.NewActivityTracker(nil)
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	handler := &httpHandler{
		users:             deps.Users,
		community:         deps.Community,
		challenge:         deps.Challenge,
		games:             gameStore,
		activity:          activity,
		speech:            deps.Speech,
		generative:        deps.Generative,
		tokens:            deps.Tokens,
		sessions:          deps.Sessions,
		realtime:          realtime,
		metrics:           deps.Metrics,
		database:          deps.Database,
		logger:            logger,
		heartbeatInterval: heartbeat,
		upgrader:          newUpgrader(deps.AllowedOrigins),
	}

	router.GET("/healthz", handler.handleHealth)

	relayRoutes := router.Group("/")
	if deps.RelayRateLimit > 0 {
		relayRoutes.Use(newClientRateLimiter(deps.RelayRateLimit, deps.RelayRateBurst, logger).middleware())
	}
	relayRoutes.POST("/gtts", handler.handleSpeech)
	relayRoutes.POST("/gemini", handler.handleCompanionReply)
	router.GET("/testcors", handler.handleCORSCheck)

	router.POST("/auth/signup", handler.handleSignUp)
	router.POST("/auth/login", handler.handleSignIn)
	router.POST("/auth/logout", handler.handleSignOut)

	router.POST("/games/:kind", handler.handleCreateGame)
	router.GET("/games/sessions/:session_id", handler.handleGetGame)
	router.POST("/games/sessions/:session_id/flip", handler.handleFlip)
	router.POST("/games/sessions/:session_id/guess", handler.handleGuess)
	router.POST("/games/sessions/:session_id/skip", handler.handleSkip)
	router.POST("/games/sessions/:session_id/start", handler.handleStart)
	router.POST("/games/sessions/:session_id/click", handler.handleClick)
	router.POST("/games/sessions/:session_id/reset", handler.handleReset)

	router.GET("/bowl/tap.wav", handler.handleTapTone)
	router.GET("/bowl/drone.wav", handler.handleDroneTone)
	router.POST("/bowl/gestures", handler.handleGesture)
	router.POST("/bowl/taps", handler.handleBowlTap)
	router.GET("/bowl/sessions/:session_id", handler.handleBowlStatus)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/profile", handler.handleProfile)
	protected.GET("/communities", handler.handleListCommunities)
	protected.GET("/communities/:community_id/messages", handler.handleListMessages)
	protected.POST("/communities/:community_id/messages", handler.handlePostMessage)
	protected.GET("/communities/:community_id/stream", handler.handleCommunityStream)
	protected.GET("/communities/:community_id/socket", handler.handleCommunitySocket)
	protected.POST("/messages/:message_id/like", handler.handleToggleLike)
	protected.POST("/messages/:message_id/replies", handler.handlePostReply)
	protected.GET("/challenge", handler.handleChallenge)
	protected.POST("/challenge/tasks/:task_id/toggle", handler.handleToggleTask)

	return router, nil
}

type httpHandler struct {
	users      *users.Service
	community  *community.Service
	challenge  *challenge.Service
	games      *games.Store
	activity   *bowl.ActivityTracker
	speech     SpeechSynthesizer
	generative ReplyGenerator
	tokens     SessionIssuer
	sessions   SessionValidator
	realtime   *RealtimeDispatcher
	metrics    *metrics.Metrics
	database   *gorm.DB
	logger     *zap.Logger

	heartbeatInterval time.Duration
	upgrader          *websocket.Upgrader
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if allowsAnyOrigin(allowedOrigins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func allowsAnyOrigin(allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, claims.UserID)
	c.Set(anonymousNameContextKey, claims.AnonymousName)
	c.Next()
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	if h.database != nil {
		sqlDB, err := h.database.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			h.logger.Error("database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
