package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	ModesEnvironment   string // APP_ENV, selects the modes overlay file
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	LLMProvider      string // "ollama" or "openai"
	LLMModel         string // e.g. "llama3", "gpt-4o-mini"
	LLMBaseURL       string
	LLMAPIKey        string
	RequestTimeout   time.Duration
	RetryAttempts    int
	RetryDelay       time.Duration
	RetryStatusCodes []int
}

type SessionConfig struct {
	TTL             time.Duration
	ContextCacheTTL time.Duration
	ModesConfigPath string
	AuditTopicName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			ModesEnvironment:   getEnv("APP_ENV", ""),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/mode_switch.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:       getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:        getEnv("LLM_API_KEY", ""),
			RequestTimeout:   getEnvAsDuration("LLM_REQUEST_TIMEOUT", 60*time.Second),
			RetryAttempts:    getEnvAsInt("LLM_RETRY_ATTEMPTS", 3),
			RetryDelay:       getEnvAsDuration("LLM_RETRY_DELAY", 5*time.Second),
			RetryStatusCodes: getEnvAsIntList("LLM_RETRY_STATUS_CODES", []int{429, 500, 502, 503, 504}),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", time.Hour),
			ContextCacheTTL: getEnvAsDuration("CONTEXT_CACHE_TTL", 10*time.Minute),
			ModesConfigPath: getEnv("MODES_CONFIG_PATH", "config/modes.yaml"),
			AuditTopicName:  getEnv("MODE_SWITCH_TOPIC_NAME", "MODE_SWITCHED"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsIntList(key string, fallback []int) []int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(strValue, ",") {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, value)
	}
	return out
}
