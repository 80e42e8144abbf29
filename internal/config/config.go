package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	OpenAIAPIKey     string
	OpenAIModel      string
	OracleURL        string
	HTTPAddr         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	LogLevel         string
	RequestTimeout   int // seconds, oracle calls
	ExplainTimeout   int // seconds, text-generation calls
	BatchWorkers     int
	DefaultCycleDays int
}

// Load initializes configuration from environment variables
func Load() *Config {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	return &Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvWithDefault("OPENAI_MODEL", "gpt-4-turbo-preview"),
		OracleURL:        getEnvWithDefault("ORACLE_URL", "http://localhost:8501"),
		HTTPAddr:         getEnvWithDefault("HTTP_ADDR", ":5000"),
		DBHost:           getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:           getEnvWithDefault("DB_PORT", "5432"),
		DBUser:           getEnvWithDefault("DB_USER", "postgres"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           getEnvWithDefault("DB_NAME", "emipredict"),
		DBSSLMode:        getEnvWithDefault("DB_SSLMODE", "disable"),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		RequestTimeout:   getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		ExplainTimeout:   getEnvIntWithDefault("EXPLAIN_TIMEOUT", 20),
		BatchWorkers:     getEnvIntWithDefault("BATCH_WORKERS", 4),
		DefaultCycleDays: getEnvIntWithDefault("DEFAULT_CYCLE_DAYS", 30),
	}
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
