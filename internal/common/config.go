package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	ACAS    ACASConfig
	OpenAI  OpenAIConfig
	Uploads UploadsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Addr       string
	CORSOrigin string
}

// AuthConfig holds the authentication boundary configuration.
type AuthConfig struct {
	ROOBaseURL string
	// APITokens maps a static token to a service identity (token -> "name|role1,role2").
	APITokens map[string]ServiceIdentity
}

// ServiceIdentity is a role-scoped identity attached to a static API token.
type ServiceIdentity struct {
	Name  string
	Roles []string
}

// ACASConfig holds the downstream import system configuration.
type ACASConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// OpenAIConfig holds the text-generation backend configuration.
type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	MaxTokens       int
	Timeout         time.Duration
	ExampleISADir   string
	ExampleACASDir  string
}

// UploadsConfig holds file intake limits and the artifact store root.
type UploadsConfig struct {
	Dir         string
	MaxFileSize int64
	MaxFiles    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       getEnv("ADDR", ":3002"),
			CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		},
		Auth: AuthConfig{
			ROOBaseURL: getEnv("ROO_BASE_URL", "http://roo:8080/acas/api/v1"),
			APITokens: map[string]ServiceIdentity{
				getEnv("API_TOKEN", "cron-job-token"): {
					Name:  "File Processing Cron Job",
					Roles: []string{RoleFileProcessor},
				},
			},
		},
		ACAS: ACASConfig{
			BaseURL:  getEnv("ACAS_BASE_URL", "http://acas:3000"),
			Username: getEnv("ACAS_USERNAME", "admin"),
			Password: getEnv("ACAS_PASSWORD", "admin"),
			Timeout:  getEnvAsDuration("ACAS_TIMEOUT", 60*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-4-turbo"),
			Temperature:    getEnvAsFloat32("OPENAI_TEMPERATURE", 0.2),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 4000),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
			ExampleISADir:  getEnv("EXAMPLE_ISA_DIR", "./examples/isa"),
			ExampleACASDir: getEnv("EXAMPLE_ACAS_DIR", "./examples/acas"),
		},
		Uploads: UploadsConfig{
			Dir:         getEnv("UPLOADS_DIR", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
			MaxFiles:    getEnvAsInt("MAX_FILES", 5),
		},
	}
}

// Roles recognized by the authentication boundary.
const (
	RoleFileProcessor = "ROLE_FILE_PROCESSOR"
	RoleACASAdmin     = "ROLE_ACAS-ADMINS"
)

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "ADDR is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.ACAS.BaseURL) == "" {
		return NewAppError("CONFIG_ERROR", "ACAS_BASE_URL is required", ErrInvalidInput)
	}
	if c.Uploads.MaxFiles <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_FILES must be positive", ErrInvalidInput)
	}
	return nil
}
