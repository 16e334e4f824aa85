package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting for the service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Assistant AssistantConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Database:  database,
		Auth:      auth,
		Assistant: assistant,
		RateLimit: rateLimit,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// DatabaseConfig selects and configures the message store backend.
type DatabaseConfig struct {
	Driver string // "postgres" or "memory"
	URL    string
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", "postgres"))
	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))

	switch driver {
	case "postgres":
		if url == "" {
			return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
		// Nothing to configure; contents are lost on restart.
	default:
		return DatabaseConfig{}, fmt.Errorf("unsupported STORE_DRIVER value: %q", driver)
	}

	return DatabaseConfig{Driver: driver, URL: url}, nil
}

// AuthConfig describes token issuance.
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET is required")
	}

	ttlMinutes := 24 * 60
	if override, err := parseOptionalIntEnv("JWT_TTL_MINUTES"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AuthConfig{}, fmt.Errorf("JWT_TTL_MINUTES must be positive")
		}
		ttlMinutes = *override
	}

	return AuthConfig{
		Secret:   secret,
		TokenTTL: time.Duration(ttlMinutes) * time.Minute,
	}, nil
}

// AssistantConfig describes the chat-completions upstream.
type AssistantConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Identity    string // reserved sender/recipient address of the bot
}

// Enabled reports whether an upstream credential was provided. The bridge
// still runs without one; every call then degrades to a fallback reply.
func (c AssistantConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadAssistantConfig() (AssistantConfig, error) {
	maxTokens := 150
	if override, err := parseOptionalIntEnv("ASSISTANT_MAX_TOKENS"); err != nil {
		return AssistantConfig{}, err
	} else if override != nil {
		maxTokens = *override
	}

	temperature := float32(0.7)
	if override, err := parseOptionalFloat32Env("ASSISTANT_TEMPERATURE"); err != nil {
		return AssistantConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	timeoutSeconds := 10
	if override, err := parseOptionalIntEnv("ASSISTANT_TIMEOUT_SECONDS"); err != nil {
		return AssistantConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	return AssistantConfig{
		APIKey:      strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		BaseURL:     getEnvOrDefault("ASSISTANT_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:       getEnvOrDefault("ASSISTANT_MODEL", "llama-3.1-8b-instant"),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Identity:    getEnvOrDefault("ASSISTANT_IDENTITY", "whatease@bot.local"),
	}, nil
}

// RateLimitConfig throttles the authentication routes per client key.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	perMinute := 30
	if override, err := parseOptionalIntEnv("RATE_LIMIT_PER_MINUTE"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		perMinute = *override
	}

	burst := 10
	if override, err := parseOptionalIntEnv("RATE_LIMIT_BURST"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		burst = *override
	}

	if perMinute < 1 || burst < 1 {
		return RateLimitConfig{}, fmt.Errorf("rate limit values must be positive")
	}

	return RateLimitConfig{PerMinute: perMinute, Burst: burst}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
