package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/bowl"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/community"
	"github.com/mayursapkal41/MindNest/internal/config"
	"github.com/mayursapkal41/MindNest/internal/database"
	"github.com/mayursapkal41/MindNest/internal/games"
	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/logging"
	"github.com/mayursapkal41/MindNest/internal/metrics"
	"github.com/mayursapkal41/MindNest/internal/relay"
	"github.com/mayursapkal41/MindNest/internal/server"
	"github.com/mayursapkal41/MindNest/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	shutdownTimeout   = 10 * time.Second
	redisCooldownKeys = "mindnest:cooldown:"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mindnest-api",
		Short: "MindNest backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply schema and data migrations, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations()
		},
	})

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	flags.String("database-path", defaults.GetString("database.path"), "SQLite database path")
	flags.String("database-dsn", defaults.GetString("database.dsn"), "Postgres connection string")
	flags.Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Session token TTL in minutes")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("log-file", defaults.GetString("log.file"), "Optional rotating log file")
	flags.String("signing-secret", "", "Session signing secret (overrides env)")
	flags.String("cooldown-store", defaults.GetString("community.cooldown_store"), "Chat cooldown store (memory, redis)")
	flags.String("redis-address", defaults.GetString("redis.address"), "Redis address for the shared cooldown store")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.file", "log-file")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "community.cooldown_store", "cooldown-store")
	bindFlag(cmd, "redis.address", "redis-address")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runMigrations() error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(appConfig, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openDatabase(appConfig config.AppConfig, logger *zap.Logger) (*gorm.DB, error) {
	return database.Open(database.Options{
		Driver: appConfig.DatabaseDriver,
		Path:   appConfig.DatabasePath,
		DSN:    appConfig.DatabaseDSN,
	}, logger)
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(appConfig, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	appMetrics := metrics.New()
	realtime := server.NewRealtimeDispatcher()
	idProvider := identifier.NewUUIDProvider()

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}
	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	cooldown, closeCooldown, err := newCooldown(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeCooldown()

	communityService, err := community.NewService(community.ServiceConfig{
		Database:         db,
		IDProvider:       idProvider,
		Profiles:         usersService,
		Filter:           community.NewFilter(appConfig.Community.ExtraDenylist...),
		Cooldown:         cooldown,
		Notifier:         realtime.Notifier(),
		Clock:            time.Now,
		Logger:           logger,
		MaxMessageLength: appConfig.Community.MaxMessageLength,
		MaxReplyLength:   appConfig.Community.MaxReplyLength,
		MessageCooldown:  appConfig.Community.MessageCooldown,
		ReplyCooldown:    appConfig.Community.ReplyCooldown,
	})
	if err != nil {
		return err
	}

	challengeService, err := challenge.NewService(challenge.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Location:   appConfig.Challenge.Location,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	relayConfig := relay.Config{
		TTSAPIKey:      appConfig.Relay.TTSAPIKey,
		GeminiAPIKey:   appConfig.Relay.GeminiAPIKey,
		TTSEndpoint:    appConfig.Relay.TTSEndpoint,
		GeminiEndpoint: appConfig.Relay.GeminiEndpoint,
		VoiceName:      appConfig.Relay.VoiceName,
		VoiceLanguage:  appConfig.Relay.VoiceLanguage,
		AudioEncoding:  appConfig.Relay.AudioEncoding,
		SpeakingRate:   appConfig.Relay.SpeakingRate,
		Timeout:        appConfig.Relay.Timeout,
	}
	if relayConfig.TTSAPIKey == "" {
		logger.Warn("text-to-speech api key is not configured; /gtts will fail")
	}
	if relayConfig.GeminiAPIKey == "" {
		logger.Warn("generative api key is not configured; /gemini will reply with the fallback")
	}
	httpClient := relay.NewHTTPClient(relayConfig.Timeout)
	speechClient := relay.NewSpeechClient(relay.SpeechClientConfig{
		Relay:      relayConfig,
		HTTPClient: httpClient,
		Observer:   appMetrics,
		Logger:     logger,
	})
	generativeClient := relay.NewGenerativeClient(relay.GenerativeClientConfig{
		Relay:      relayConfig,
		HTTPClient: httpClient,
		Observer:   appMetrics,
		Logger:     logger,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Users:          usersService,
		Community:      communityService,
		Challenge:      challengeService,
		Games:          games.NewStore(games.StoreConfig{IDProvider: idProvider}),
		Bowl:           bowl.NewActivityTracker(time.Now),
		Speech:         speechClient,
		Generative:     generativeClient,
		Tokens:         tokenIssuer,
		Sessions:       sessionValidator,
		Realtime:       realtime,
		Metrics:        appMetrics,
		Database:       db,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
		TrustedProxies: appConfig.TrustedProxies,
		RelayRateLimit: rate.Limit(appConfig.Relay.RateLimitPerSecond),
		RelayRateBurst: appConfig.Relay.RateLimitBurst,
	})
	if err != nil {
		return err
	}

	scheduler, err := newStreakSweeper(appConfig, challengeService, appMetrics, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newCooldown(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (community.Cooldown, func(), error) {
	if appConfig.Community.CooldownStore != config.CooldownStoreRedis {
		return community.NewMemoryCooldown(time.Now), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     appConfig.Redis.Address,
		Password: appConfig.Redis.Password,
		DB:       appConfig.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	logger.Info("using redis cooldown store", zap.String("address", appConfig.Redis.Address))
	return community.NewRedisCooldown(client, redisCooldownKeys), func() { _ = client.Close() }, nil
}

func newStreakSweeper(appConfig config.AppConfig, challengeService *challenge.Service, appMetrics *metrics.Metrics, logger *zap.Logger) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithLocation(appConfig.Challenge.Location))
	schedule := strings.TrimSpace(appConfig.Challenge.SweepSchedule)
	if schedule == "" {
		logger.Info("streak sweep disabled")
		return scheduler, nil
	}
	_, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		reset, err := challengeService.ResetLapsedStreaks(ctx, time.Now())
		if err != nil {
			logger.Error("streak sweep failed", zap.Error(err))
			return
		}
		appMetrics.RecordStreakResets(reset)
		logger.Info("streak sweep finished", zap.Int64("reset", reset))
	})
	if err != nil {
		return nil, err
	}
	return scheduler, nil
}
