package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// generateConsumerName creates a unique consumer name using hostname and PID
func generateConsumerName() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Queue
	RedisURL      string
	ConsumerGroup string
	ConsumerName  string

	// Backend REST API. Empty means the variable was not set; the
	// bootstrap decides whether that is fatal (calendar tools) or
	// defaults to localhost.
	BackendURL string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string

	// Text generation
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Agent
	AgentCalendarTools bool
	AgentMaxToolSteps  int

	// Campaign send throttling
	ContactPageSize int
	SendDelay       time.Duration
	PageDelay       time.Duration
	TokenCheckEvery int

	// Token refresh
	TokenExpiryBuffer time.Duration

	// Reply poll schedule
	SchedulerEnabled  bool
	ReplyPollInterval time.Duration
	HistoryLimit      int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "campaign-worker"),
		ConsumerName:  getEnv("CONSUMER_NAME", generateConsumerName()),

		BackendURL: getEnv("BACKEND_URL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		OpenAIAPIKey:   openAIKey(),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		AgentCalendarTools: getEnvBool("AGENT_CALENDAR_TOOLS", false),
		AgentMaxToolSteps:  getEnvInt("AGENT_MAX_TOOL_STEPS", 5),

		ContactPageSize: getEnvInt("CONTACT_PAGE_SIZE", 50),
		SendDelay:       time.Duration(getEnvInt("SEND_DELAY_MS", 300)) * time.Millisecond,
		PageDelay:       time.Duration(getEnvInt("PAGE_DELAY_MS", 1000)) * time.Millisecond,
		TokenCheckEvery: getEnvInt("TOKEN_CHECK_EVERY", 20),

		TokenExpiryBuffer: time.Duration(getEnvInt("TOKEN_EXPIRY_BUFFER_MIN", 5)) * time.Minute,

		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		ReplyPollInterval: time.Duration(getEnvInt("REPLY_POLL_INTERVAL_SEC", 60)) * time.Second,
		HistoryLimit:      getEnvInt("CONVERSATION_HISTORY_LIMIT", 20),
	}, nil
}

// openAIKey checks the three variable names the key has historically been
// deployed under.
func openAIKey() string {
	for _, name := range []string{"OPENAI_API_KEY", "OPEN_AI_API_KEY", "OPENAI_KEY"} {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
