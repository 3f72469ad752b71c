package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "MINDNEST"
	defaultHTTPAddress         = "0.0.0.0:3000"
	defaultDatabaseDriver      = DatabaseDriverSQLite
	defaultDatabasePath        = "mindnest.db"
	defaultLogLevel            = "info"
	defaultTokenTTLMinutes     = 1440
	defaultTTSEndpoint         = "https://texttospeech.googleapis.com/v1/text:synthesize"
	defaultGeminiEndpoint      = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"
	defaultVoiceName           = "en-US-Neural2-F"
	defaultVoiceLanguage       = "en-US"
	defaultAudioEncoding       = "LINEAR16"
	defaultSpeakingRate        = 0.75
	defaultRelayTimeoutSeconds = 30
	defaultRelayBurst          = 5
	defaultMessageCooldownMS   = 3000
	defaultReplyCooldownMS     = 2000
	defaultMaxMessageLength    = 2000
	defaultMaxReplyLength      = 1000
	defaultCooldownStore       = CooldownStoreMemory
	defaultRedisAddress        = "localhost:6379"
	defaultTimezone            = "UTC"
	defaultSweepSchedule       = "5 0 * * *"
)

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
	CooldownStoreMemory    = "memory"
	CooldownStoreRedis     = "redis"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	TrustedProxies []string
	LogLevel       string
	LogFile        string

	DatabaseDriver string
	DatabasePath   string
	DatabaseDSN    string

	SigningSecret string
	TokenTTL      time.Duration

	Relay     RelayConfig
	Community CommunityConfig
	Redis     RedisConfig
	Challenge ChallengeConfig
}

// RelayConfig configures the speech and generative-text relay.
type RelayConfig struct {
	TTSAPIKey          string
	GeminiAPIKey       string
	TTSEndpoint        string
	GeminiEndpoint     string
	VoiceName          string
	VoiceLanguage      string
	AudioEncoding      string
	SpeakingRate       float64
	Timeout            time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// CommunityConfig configures chat validation and cooldowns.
type CommunityConfig struct {
	MessageCooldown  time.Duration
	ReplyCooldown    time.Duration
	MaxMessageLength int
	MaxReplyLength   int
	ExtraDenylist    []string
	CooldownStore    string
}

// RedisConfig points at the shared cooldown store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// ChallengeConfig configures calendar handling for the 30-day challenge.
type ChallengeConfig struct {
	Location      *time.Location
	SweepSchedule string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	// Variable names used by the original relay deployment.
	_ = configViper.BindEnv("relay.tts_api_key", "MINDNEST_RELAY_TTS_API_KEY", "GOOGLE_TTS_API_KEY")
	_ = configViper.BindEnv("relay.gemini_api_key", "MINDNEST_RELAY_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = configViper.BindEnv("http.port", "MINDNEST_HTTP_PORT", "PORT")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.port", "")
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("http.trusted_proxies", []string{})
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.file", "")
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("relay.tts_endpoint", defaultTTSEndpoint)
	configViper.SetDefault("relay.gemini_endpoint", defaultGeminiEndpoint)
	configViper.SetDefault("relay.voice_name", defaultVoiceName)
	configViper.SetDefault("relay.voice_language", defaultVoiceLanguage)
	configViper.SetDefault("relay.audio_encoding", defaultAudioEncoding)
	configViper.SetDefault("relay.speaking_rate", defaultSpeakingRate)
	configViper.SetDefault("relay.timeout_seconds", defaultRelayTimeoutSeconds)
	configViper.SetDefault("relay.rate_limit_per_second", 0)
	configViper.SetDefault("relay.rate_limit_burst", defaultRelayBurst)
	configViper.SetDefault("community.message_cooldown_ms", defaultMessageCooldownMS)
	configViper.SetDefault("community.reply_cooldown_ms", defaultReplyCooldownMS)
	configViper.SetDefault("community.max_message_length", defaultMaxMessageLength)
	configViper.SetDefault("community.max_reply_length", defaultMaxReplyLength)
	configViper.SetDefault("community.extra_denylist", []string{})
	configViper.SetDefault("community.cooldown_store", defaultCooldownStore)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("challenge.timezone", defaultTimezone)
	configViper.SetDefault("challenge.sweep_schedule", defaultSweepSchedule)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	location, err := time.LoadLocation(strings.TrimSpace(configViper.GetString("challenge.timezone")))
	if err != nil {
		return AppConfig{}, fmt.Errorf("challenge.timezone is invalid: %w", err)
	}

	address, err := resolveAddress(configViper.GetString("http.address"), configViper.GetString("http.port"))
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		HTTPAddress:    address,
		AllowedOrigins: configViper.GetStringSlice("cors.allowed_origins"),
		TrustedProxies: configViper.GetStringSlice("http.trusted_proxies"),
		LogLevel:       configViper.GetString("log.level"),
		LogFile:        strings.TrimSpace(configViper.GetString("log.file")),
		DatabaseDriver: strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:   configViper.GetString("database.path"),
		DatabaseDSN:    configViper.GetString("database.dsn"),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		Relay: RelayConfig{
			TTSAPIKey:          strings.TrimSpace(configViper.GetString("relay.tts_api_key")),
			GeminiAPIKey:       strings.TrimSpace(configViper.GetString("relay.gemini_api_key")),
			TTSEndpoint:        configViper.GetString("relay.tts_endpoint"),
			GeminiEndpoint:     configViper.GetString("relay.gemini_endpoint"),
			VoiceName:          configViper.GetString("relay.voice_name"),
			VoiceLanguage:      configViper.GetString("relay.voice_language"),
			AudioEncoding:      configViper.GetString("relay.audio_encoding"),
			SpeakingRate:       configViper.GetFloat64("relay.speaking_rate"),
			Timeout:            time.Duration(configViper.GetInt("relay.timeout_seconds")) * time.Second,
			RateLimitPerSecond: configViper.GetFloat64("relay.rate_limit_per_second"),
			RateLimitBurst:     configViper.GetInt("relay.rate_limit_burst"),
		},
		Community: CommunityConfig{
			MessageCooldown:  time.Duration(configViper.GetInt("community.message_cooldown_ms")) * time.Millisecond,
			ReplyCooldown:    time.Duration(configViper.GetInt("community.reply_cooldown_ms")) * time.Millisecond,
			MaxMessageLength: configViper.GetInt("community.max_message_length"),
			MaxReplyLength:   configViper.GetInt("community.max_reply_length"),
			ExtraDenylist:    configViper.GetStringSlice("community.extra_denylist"),
			CooldownStore:    strings.ToLower(strings.TrimSpace(configViper.GetString("community.cooldown_store"))),
		},
		Redis: RedisConfig{
			Address:  configViper.GetString("redis.address"),
			Password: configViper.GetString("redis.password"),
			DB:       configViper.GetInt("redis.db"),
		},
		Challenge: ChallengeConfig{
			Location:      location,
			SweepSchedule: strings.TrimSpace(configViper.GetString("challenge.sweep_schedule")),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func resolveAddress(address, port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		return address, nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return "", fmt.Errorf("http.address is invalid: %w", err)
	}
	return net.JoinHostPort(host, port), nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	switch c.DatabaseDriver {
	case DatabaseDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case DatabaseDriverPostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	switch c.Community.CooldownStore {
	case CooldownStoreMemory, CooldownStoreRedis:
	default:
		return fmt.Errorf("community.cooldown_store %q is not supported", c.Community.CooldownStore)
	}
	if c.Community.MaxMessageLength <= 0 || c.Community.MaxReplyLength <= 0 {
		return fmt.Errorf("community length limits must be positive")
	}
	return nil
}
