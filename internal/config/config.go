// Package config provides environment configuration for the bot.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevelopmentJWTSecret is the JWT_SECRET fallback. Validate accepts it only
// at debug log level.
const DevelopmentJWTSecret = "development-secret-change-in-production"

// Config holds all configuration for the application.
type Config struct {
	// Admin HTTP settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Discord settings
	DiscordToken   string
	GuildID        string
	HelpChannelID  string
	TicketCategory string
	StaffRoleIDs   []string
	EventTimeout   time.Duration

	// Ticket settings
	TicketNaming     string
	TicketGreeting   string
	CooldownWindow   time.Duration
	SuspendDuration  time.Duration
	CloseGrace       time.Duration
	ForceCloseGrace  time.Duration
	ReaperInterval   time.Duration
	ReaperIdle       time.Duration
	ReaperGrace      time.Duration
	ReaperNotice     string
	CountingChannels []string
	ChunkMaxLen      int

	// Conversation settings
	AIRepliesEnabled      bool
	ConversationMaxSize   int
	ConversationKeyMode   string
	ConversationExpiry    time.Duration
	ConversationRetention time.Duration
	RecordFailures        bool
	FailureText           string
	SystemPrompt          string

	// LLM settings
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	LLMModel        string
	LLMMaxTokens    int
	LLMTimeout      time.Duration

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	EventsMaxAge time.Duration

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Housekeeping cron spec
	HousekeepingSchedule string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Admin HTTP
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		AllowedOrigins:     getListEnv("ALLOWED_ORIGINS", nil),

		// Discord
		DiscordToken:   getEnv("DISCORD_TOKEN", ""),
		GuildID:        getEnv("GUILD_ID", ""),
		HelpChannelID:  getEnv("HELP_CHANNEL_ID", ""),
		TicketCategory: getEnv("TICKET_CATEGORY_ID", ""),
		StaffRoleIDs:   getListEnv("STAFF_ROLE_IDS", nil),
		EventTimeout:   getDurationEnv("EVENT_TIMEOUT", 30*time.Second),

		// Tickets
		TicketNaming:     getEnv("TICKET_NAMING", "name_id"),
		TicketGreeting:   getEnv("TICKET_GREETING", "👋 Hello {user_name}, a staff member will be with you shortly. Describe your issue below."),
		CooldownWindow:   getDurationEnv("TICKET_COOLDOWN", 10*time.Second),
		SuspendDuration:  getDurationEnv("SPAM_TIMEOUT", 10*time.Minute),
		CloseGrace:       getDurationEnv("CLOSE_GRACE", 5*time.Second),
		ForceCloseGrace:  getDurationEnv("FORCE_CLOSE_GRACE", 3*time.Second),
		ReaperInterval:   getDurationEnv("REAPER_INTERVAL", time.Hour),
		ReaperIdle:       getDurationEnv("REAPER_IDLE_THRESHOLD", 12*time.Hour),
		ReaperGrace:      getDurationEnv("REAPER_GRACE", 5*time.Second),
		ReaperNotice:     getEnv("REAPER_NOTICE", "⏳ Ticket has been inactive for 12 hours and will now be closed."),
		CountingChannels: getListEnv("COUNTING_CHANNEL_IDS", nil),
		ChunkMaxLen:      getIntEnv("CHUNK_MAX_LEN", 2000),

		// Conversation
		AIRepliesEnabled:      getBoolEnv("AI_REPLIES_ENABLED", true),
		ConversationMaxSize:   getIntEnv("CONVERSATION_MAX_ENTRIES", 6),
		ConversationKeyMode:   getEnv("CONVERSATION_KEY_MODE", "channel"),
		ConversationExpiry:    getDurationEnv("CONVERSATION_CONTEXT_EXPIRY", 0),
		ConversationRetention: getDurationEnv("CONVERSATION_RETENTION", 24*time.Hour),
		RecordFailures:        getBoolEnv("CONVERSATION_RECORD_FAILURES", false),
		FailureText:           getEnv("CONVERSATION_FAILURE_TEXT", "⚠️ Sorry, I am currently unable to respond."),
		SystemPrompt:          getEnv("SYSTEM_PROMPT", ""),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMMaxTokens:    getIntEnv("LLM_MAX_TOKENS", 1024),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 60*time.Second),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		EventsMaxAge: getDurationEnv("EVENTS_MAX_AGE", 30*24*time.Hour),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", DevelopmentJWTSecret),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		HousekeepingSchedule: getEnv("HOUSEKEEPING_SCHEDULE", "@every 5m"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.GuildID == "" {
		errs = append(errs, errors.New("GUILD_ID is required"))
	}
	if c.TicketNaming != "name_id" && c.TicketNaming != "name" {
		errs = append(errs, errors.New("TICKET_NAMING must be name_id or name"))
	}
	if c.JWTSecret == DevelopmentJWTSecret && c.LogLevel != "debug" {
		errs = append(errs, errors.New("JWT_SECRET must be set outside debug mode"))
	}
	if c.ReaperInterval <= 0 {
		errs = append(errs, errors.New("REAPER_INTERVAL must be positive"))
	}
	if c.ChunkMaxLen <= 0 {
		errs = append(errs, errors.New("CHUNK_MAX_LEN must be positive"))
	}
	if c.ConversationMaxSize <= 0 {
		errs = append(errs, errors.New("CONVERSATION_MAX_ENTRIES must be positive"))
	}
	if c.AIRepliesEnabled {
		switch c.LLMProvider {
		case "openai":
			if c.OpenAIAPIKey == "" {
				errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
			}
		case "anthropic":
			if c.AnthropicAPIKey == "" {
				errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
			}
		default:
			errs = append(errs, errors.New("LLM_PROVIDER must be openai or anthropic"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
