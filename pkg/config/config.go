// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config is the full application configuration.
type Config struct {
	App     AppConfig
	AI      AIConfig
	Session SessionConfig
}

// AppConfig configures the HTTP server.
type AppConfig struct {
	Name        string
	Version     string
	Port        string
	LogLevel    string
	CORSOrigins string
	Debug       bool
}

// AIConfig selects and configures the generation provider.
type AIConfig struct {
	Provider  string
	Model     string
	AWSRegion string
}

// SessionConfig sets per-session defaults.
type SessionConfig struct {
	SystemPrompt string
	TokenBudget  int
	EnableTools  bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Parley Session API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Port:        getEnv("PORT", "8080"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
			Debug:       getEnvBool("DEBUG", false),
		},
		AI: AIConfig{
			Provider:  getEnv("AI_PROVIDER", "openai"),
			Model:     getEnv("AI_MODEL", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
		Session: SessionConfig{
			SystemPrompt: getEnv("SYSTEM_PROMPT", "You are a helpful assistant."),
			TokenBudget:  getEnvInt("SESSION_TOKEN_BUDGET", 4000),
			EnableTools:  getEnvBool("ENABLE_TOOLS", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
