// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	Server     ServerConfig
	Database   DatabaseConfig
	LLM        LLMConfig
	Embeddings EmbeddingsConfig
	Gateway    GatewayConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds storage configuration. When DSN is empty the
// application falls back to a local SQLite file at SqlitePath.
type DatabaseConfig struct {
	DSN        string
	SqlitePath string
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
	CallTimeout time.Duration
}

// EmbeddingsConfig holds embedding model configuration.
type EmbeddingsConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// GatewayConfig holds messaging gateway configuration for photo delivery.
type GatewayConfig struct {
	SendImageURL string
	Timeout      time.Duration
}

// New loads settings from environment variables.
// Returns an error if any variable contains an invalid value.
func New() (Settings, error) {
	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	callTimeout, err := getEnvDuration("LLM_CALL_TIMEOUT", 120*time.Second)
	if err != nil {
		return Settings{}, err
	}

	gatewayTimeout, err := getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8000"),
		},
		Database: DatabaseConfig{
			DSN:        os.Getenv("DATABASE_URL"),
			SqlitePath: getEnv("SQLITE_PATH", "data/meatline.db"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openrouter"),
			Model:       os.Getenv("LLM_MODEL"),
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			CallTimeout: callTimeout,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: os.Getenv("EMBEDDINGS_BASE_URL"),
			APIKey:  os.Getenv("EMBEDDINGS_API_KEY"),
			Model:   getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		},
		Gateway: GatewayConfig{
			SendImageURL: os.Getenv("GATEWAY_SEND_IMAGE_URL"),
			Timeout:      gatewayTimeout,
		},
	}, nil
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
