package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabasePath string
	HTTPPort     string
	JWTSecret    string

	LogLevel  string
	LogFormat string

	// Corpus files holding precomputed embeddings plus their snippets.
	RegulationsCorpusPath string
	ServicesCorpusPath    string

	// Optional YAML file overriding the built-in prompt templates.
	PromptsFile string

	TopK                int
	GenerateMaxAttempts int
	GenerateBackoff     time.Duration
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cfg := Config{
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		DatabasePath:          getEnv("DATABASE_PATH", "civic_assistant.db"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		RegulationsCorpusPath: getEnv("REGULATIONS_CORPUS", "corpora/regulations.json"),
		ServicesCorpusPath:    getEnv("SERVICES_CORPUS", "corpora/services.json"),
		PromptsFile:           getEnv("PROMPTS_FILE", ""),
		TopK:                  getEnvAsInt("RETRIEVAL_TOP_K", 5),
		GenerateMaxAttempts:   getEnvAsInt("GENERATE_MAX_ATTEMPTS", 3),
		GenerateBackoff:       time.Duration(getEnvAsInt("GENERATE_BACKOFF_SECONDS", 60)) * time.Second,
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
