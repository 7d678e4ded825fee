package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Search        SearchConfig
	OpenAI        OpenAIConfig
	Speech        SpeechConfig
	Database      *DatabaseConfig // Optional: chat history store. When nil, history is disabled.
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SearchConfig holds Azure AI Search configuration
type SearchConfig struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	Timeout    time.Duration
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint            string
	APIKey              string
	Deployment          string
	APIVersion          string
	Timeout             time.Duration
	MaxCompletionTokens int
	SystemPrompt        string
}

// SpeechConfig holds Azure Speech configuration. Speech is optional;
// when APIKey or Region is empty the speech endpoints are disabled.
type SpeechConfig struct {
	APIKey   string
	Region   string
	Language string
	Voice    string
	Timeout  time.Duration
}

// Configured reports whether speech can be enabled
func (c *SpeechConfig) Configured() bool {
	return c.APIKey != "" && c.Region != ""
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 180*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			Endpoint:   getEnv("AZURE_SEARCH_ENDPOINT", ""),
			APIKey:     getEnv("AZURE_SEARCH_API_KEY", ""),
			Index:      getEnv("AZURE_SEARCH_INDEX", ""),
			APIVersion: getEnv("AZURE_SEARCH_API_VERSION", "2023-11-01"),
			Timeout:    getEnvAsDuration("AZURE_SEARCH_TIMEOUT", 30*time.Second),
		},
		OpenAI: OpenAIConfig{
			Endpoint:            getEnv("AZURE_OPENAI_ENDPOINT", ""),
			APIKey:              getEnv("AZURE_OPENAI_API_KEY", ""),
			Deployment:          getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			APIVersion:          getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			Timeout:             getEnvAsDuration("AZURE_OPENAI_TIMEOUT", 120*time.Second),
			MaxCompletionTokens: getEnvAsInt("AZURE_OPENAI_MAX_COMPLETION_TOKENS", 800),
			SystemPrompt:        getEnv("ASSISTANT_SYSTEM_PROMPT", ""),
		},
		Speech: SpeechConfig{
			APIKey:   getEnv("AZURE_SPEECH_API_KEY", ""),
			Region:   getEnv("AZURE_SPEECH_REGION", ""),
			Language: getEnv("AZURE_SPEECH_LANGUAGE", "en-US"),
			Voice:    getEnv("AZURE_SPEECH_VOICE", ""),
			Timeout:  getEnvAsDuration("AZURE_SPEECH_TIMEOUT", 30*time.Second),
		},
		Database: loadDatabaseConfig(),
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Search.Endpoint == "" {
		return fmt.Errorf("AZURE_SEARCH_ENDPOINT is required")
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("AZURE_SEARCH_API_KEY is required")
	}
	if c.Search.Index == "" {
		return fmt.Errorf("AZURE_SEARCH_INDEX is required")
	}

	if c.OpenAI.Endpoint == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("AZURE_OPENAI_API_KEY is required")
	}
	if c.OpenAI.Deployment == "" {
		return fmt.Errorf("AZURE_OPENAI_DEPLOYMENT is required")
	}

	// Speech is optional, but a partial configuration is a mistake
	if (c.Speech.APIKey == "") != (c.Speech.Region == "") {
		return fmt.Errorf("AZURE_SPEECH_API_KEY and AZURE_SPEECH_REGION must be set together")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Returns nil when neither is set (chat history disabled).
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return &DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	if getEnv("DB_HOST", "") == "" {
		return nil
	}
	return &DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "assistant"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "manuals_assistant"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
